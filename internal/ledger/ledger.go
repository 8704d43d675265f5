// Package ledger reads the accounting (SSE) XML Spreadsheet exports used as the reconciliation reference.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"posrecon/internal/grid"
	"posrecon/internal/parser"
	"posrecon/internal/textnorm"
)

// ErrUnreadable the file could not be read as a ledger of the requested kind. No partial data is returned.
var ErrUnreadable = errors.New("unreadable ledger file")

// Kind reconciliation domain; the values are the ones used by the web form.
type Kind string

const (
	KindVolume Kind = "SanLuong"
	KindCash   Kind = "TienMat"
	KindDebt   Kind = "CongNo"
)

// ParseKind validates a reconcile_type value.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindVolume, KindCash, KindDebt:
		return k, nil
	}
	return "", fmt.Errorf("unknown reconcile type %q", s)
}

// KindFromSheet maps a recognized sheet kind to a ledger kind.
func KindFromSheet(k parser.SheetKind) (Kind, bool) {
	switch k {
	case parser.SheetKindVolumeLedger:
		return KindVolume, true
	case parser.SheetKindCashLedger:
		return KindCash, true
	case parser.SheetKindDebtLedger:
		return KindDebt, true
	}
	return "", false
}

// VolumeColumn ties a POS product to the suffix of its "Ngày dd/mm <suffix>" ledger column.
type VolumeColumn struct {
	Product string
	Suffix  string
}

// Options ledger layout settings.
type Options struct {
	VolumeColumns        []VolumeColumn
	DebtStoreRowPrefix   string
	PlaceholderCustomers []string
	// DebtStoreNames optional ledger store code -> POS display name.
	DebtStoreNames map[string]string
}

// VolumeRow per-customer product volumes, rounded to whole units.
type VolumeRow struct {
	CustomerCode string                     `json:"customerCode"`
	CustomerName string                     `json:"customerName"`
	Products     map[string]decimal.Decimal `json:"products"`
}

// CashRow per-customer cash sales for the reconciliation date.
type CashRow struct {
	CustomerCode string          `json:"customerCode"`
	CustomerName string          `json:"customerName"`
	Cash         decimal.Decimal `json:"cash"`
}

// DebtRow debt incurred by one customer at one store.
type DebtRow struct {
	StoreKey     string          `json:"storeKey"`
	StoreCode    string          `json:"storeCode"`
	StoreName    string          `json:"storeName"`
	CustomerCode string          `json:"customerCode"`
	CustomerName string          `json:"customerName"`
	Debt         decimal.Decimal `json:"debt"`
}

// Dataset output of Parse; only the slice matching Kind is filled.
type Dataset struct {
	Kind   Kind        `json:"kind"`
	Date   string      `json:"date,omitempty"` // "Ngày dd/mm" token of volume ledgers
	Volume []VolumeRow `json:"volume,omitempty"`
	Cash   []CashRow   `json:"cash,omitempty"`
	Debt   []DebtRow   `json:"debt,omitempty"`
}

// Len number of rows in the dataset.
func (d *Dataset) Len() int {
	return len(d.Volume) + len(d.Cash) + len(d.Debt)
}

// Parse decodes data as an XML Spreadsheet (or XLSX) ledger of the given kind.
// date is the reconciliation date and is only used by cash ledgers.
func Parse(kind Kind, data []byte, date time.Time, opts Options) (*Dataset, error) {
	g, err := grid.Decode("", data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return FromGrid(kind, g, date, opts)
}

// FromGrid extracts a dataset from an already decoded grid.
func FromGrid(kind Kind, g grid.Grid, date time.Time, opts Options) (*Dataset, error) {
	switch kind {
	case KindVolume:
		dateToken, rows, err := volumeFromGrid(g, opts)
		if err != nil {
			return nil, err
		}
		return &Dataset{Kind: kind, Date: dateToken, Volume: rows}, nil
	case KindCash:
		rows, err := cashFromGrid(g, date)
		if err != nil {
			return nil, err
		}
		return &Dataset{Kind: kind, Cash: rows}, nil
	case KindDebt:
		rows, err := debtFromGrid(g, opts)
		if err != nil {
			return nil, err
		}
		return &Dataset{Kind: kind, Debt: rows}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrUnreadable, kind)
}

func unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreadable, fmt.Sprintf(format, args...))
}

// headerIndex finds the column whose trimmed header equals one of names exactly.
func headerIndex(header grid.Row, names ...string) int {
	for j := range header {
		cell := header.Text(j)
		for _, n := range names {
			if cell == n {
				return j
			}
		}
	}
	return -1
}

// headerIndexByKey finds the column whose normalized header equals one of keys.
func headerIndexByKey(header grid.Row, keys ...string) int {
	for j := range header {
		k := textnorm.NormalizeKey(header.Text(j))
		for _, want := range keys {
			if k == want {
				return j
			}
		}
	}
	return -1
}

func locateHeader(g grid.Grid) (int, error) {
	h := parser.FindHeaderRow(g, parser.LedgerHeaderTokens)
	if h < 0 {
		return -1, unreadable("no header row")
	}
	return h, nil
}
