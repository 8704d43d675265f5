// Package reconciler runs one reconciliation request end to end: it checks that POS data exists
// for the date, reads the uploaded ledger and compares both sides.
package reconciler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"posrecon/internal/config"
	"posrecon/internal/grid"
	"posrecon/internal/ledger"
	"posrecon/internal/logging"
	"posrecon/internal/model"
	"posrecon/internal/parser"
	"posrecon/internal/reconcile"
	"posrecon/internal/store"
)

// KindAuto asks the service to recognize the ledger kind from its header.
const KindAuto = "auto"

var (
	// ErrReportNotFound no POS data is stored for the requested date.
	ErrReportNotFound = errors.New("pos report not found")
	// ErrUnknownKind the reconcile type is invalid or could not be recognized.
	ErrUnknownKind = errors.New("unknown reconcile type")
)

// Request one reconciliation.
type Request struct {
	Date     time.Time
	Kind     string // SanLuong, TienMat, CongNo or auto
	Filename string
	Data     []byte
}

// Outcome reconciliation result.
type Outcome struct {
	Kind       ledger.Kind        `json:"reconcile_type"`
	Records    []reconcile.Record `json:"data"`
	Summary    reconcile.Summary  `json:"summary"`
	LedgerRows int                `json:"ledger_rows"`
	Archived   string             `json:"-"`
}

// Service reconciles uploaded ledgers against stored POS results.
type Service struct {
	store      *store.Store
	biz        config.BusinessConfig
	recognizer *parser.SheetRecognizer
	archiveDir string
	log        zerolog.Logger
}

// New creates a service; uploaded ledgers are archived under archiveDir unless it is empty.
func New(st *store.Store, biz config.BusinessConfig, archiveDir string) *Service {
	return &Service{
		store:      st,
		biz:        biz,
		recognizer: parser.NewSheetRecognizer(parser.DefaultLayout()),
		archiveDir: archiveDir,
		log:        logging.WithComponent("reconciler"),
	}
}

// Reconcile validates the request, loads both sides and compares them.
func (s *Service) Reconcile(req Request) (*Outcome, error) {
	var kind ledger.Kind
	auto := strings.EqualFold(strings.TrimSpace(req.Kind), KindAuto) || strings.TrimSpace(req.Kind) == ""
	if !auto {
		k, err := ledger.ParseKind(req.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownKind, err)
		}
		kind = k
	}

	ok, err := s.store.HasReport(req.Date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, req.Date.Format(model.DateLayout))
	}

	g, err := grid.Decode(req.Filename, req.Data)
	if err != nil {
		if auto {
			return nil, fmt.Errorf("%w: %v", ErrUnknownKind, err)
		}
		return nil, fmt.Errorf("%w: %v", ledger.ErrUnreadable, err)
	}
	if auto {
		rec := s.recognizer.Recognize(g)
		k, found := ledger.KindFromSheet(rec.Kind)
		if !found {
			return nil, fmt.Errorf("%w: recognized as %s", ErrUnknownKind, rec.Kind)
		}
		kind = k
	}

	ds, err := ledger.FromGrid(kind, g, req.Date, LedgerOptions(s.biz))
	if err != nil {
		return nil, err
	}

	out := &Outcome{Kind: kind, LedgerRows: ds.Len()}
	tables := Tables(s.biz)
	switch kind {
	case ledger.KindVolume, ledger.KindCash:
		aggs, err := s.store.GetSummaries(req.Date)
		if err != nil {
			return nil, err
		}
		if kind == ledger.KindVolume {
			out.Records = reconcile.Volume(aggs, ds.Volume, tables)
		} else {
			out.Records = reconcile.Cash(aggs, ds.Cash, tables)
		}
	case ledger.KindDebt:
		lines, err := s.store.GetDebtLines(req.Date)
		if err != nil {
			return nil, err
		}
		out.Records = reconcile.Debt(lines, ds.Debt, tables)
	}
	if out.Records == nil {
		out.Records = []reconcile.Record{}
	}
	out.Summary = reconcile.Summarize(out.Records)

	if s.archiveDir != "" {
		name := fmt.Sprintf("%s_%s_%s%s", req.Date.Format(model.DateLayout), kind, uuid.NewString()[:8], archiveExt(req.Filename))
		p := filepath.Join(s.archiveDir, name)
		if err := writeBytesAtomic(p, req.Data); err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("archive uploaded ledger")
		} else {
			out.Archived = p
		}
	}
	return out, nil
}

// LedgerOptions ledger layout settings from the business tables.
func LedgerOptions(biz config.BusinessConfig) ledger.Options {
	opts := ledger.Options{
		DebtStoreRowPrefix:   biz.DebtStoreRowPrefix,
		PlaceholderCustomers: biz.PlaceholderCustomers,
		DebtStoreNames:       make(map[string]string, len(biz.DebtStoreMapping)),
	}
	for _, c := range biz.VolumeColumns {
		opts.VolumeColumns = append(opts.VolumeColumns, ledger.VolumeColumn{Product: c.Product, Suffix: c.Suffix})
	}
	for ledgerCode, storeCode := range biz.DebtStoreMapping {
		if name, ok := biz.StoreName(storeCode); ok {
			opts.DebtStoreNames[ledgerCode] = name
		}
	}
	return opts
}

// Tables reconciliation reference data from the business tables.
func Tables(biz config.BusinessConfig) reconcile.Tables {
	return reconcile.Tables{
		Stores:            biz.Stores,
		Products:          biz.Products,
		VolumeMapping:     biz.VolumeMapping,
		CashMapping:       biz.CashMapping,
		ExcludedCustomers: biz.ExcludedCustomers,
		UnknownCode:       biz.UnknownCode,
	}
}

func archiveExt(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	return ".xml"
}

func writeBytesAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
