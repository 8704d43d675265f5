package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"posrecon/internal/grid"
	"posrecon/internal/parser"
	"posrecon/internal/textnorm"
)

// Debt ledger default column positions, used when the header does not name them.
const (
	debtColSeq    = 0
	debtColCode   = 1
	debtColName   = 2
	debtColAmount = 3
)

type debtStore struct {
	code    string
	rawName string
	name    string
	key     string
	rawKey  string
}

func debtFromGrid(g grid.Grid, opts Options) ([]DebtRow, error) {
	h, err := locateHeader(g)
	if err != nil {
		return nil, err
	}
	header := g[h]

	codeCol := colOr(headerIndexByKey(header, "ma khach", "ma kh", "ma khach hang"), debtColCode)
	nameCol := colOr(headerIndexByKey(header, "ten khach", "ten khach hang"), debtColName)
	amountCol := colOr(headerIndexByKey(header, "phat sinh no", "ps no"), debtColAmount)

	prefix := textnorm.NormalizeKey(opts.DebtStoreRowPrefix)
	if prefix == "" {
		return nil, unreadable("store row prefix not configured")
	}
	placeholders := make(map[string]bool, len(opts.PlaceholderCustomers))
	for _, p := range opts.PlaceholderCustomers {
		placeholders[textnorm.NormalizeKey(p)] = true
	}

	var (
		rows    []DebtRow
		current *debtStore
		stores  int
	)
	for i := h + 1; i < len(g); i++ {
		row := g[i]

		if s, ok := storeHeader(row, prefix, opts.DebtStoreNames); ok {
			current = s
			stores++
			continue
		}
		if current == nil || !parser.IsSequenceNumber(row.Text(debtColSeq)) {
			continue
		}

		code, name := row.Text(codeCol), row.Text(nameCol)
		if textnorm.IsBlankCode(code) {
			code = ""
		}
		if code == "" && name == "" {
			continue
		}
		if current.postedToStore(code, name) || placeholders[textnorm.NormalizeKey(name)] {
			continue
		}

		rows = append(rows, DebtRow{
			StoreKey:     current.key,
			StoreCode:    current.code,
			StoreName:    current.name,
			CustomerCode: code,
			CustomerName: name,
			Debt:         parseDebtAmount(row.Text(amountCol)),
		})
	}

	if stores == 0 {
		return nil, unreadable("no store rows")
	}
	return rows, nil
}

// storeHeader: empty first cell, store code in the second, third cell starting with the store prefix.
func storeHeader(row grid.Row, prefix string, names map[string]string) (*debtStore, bool) {
	if row.Text(0) != "" || row.Text(1) == "" {
		return nil, false
	}
	raw := row.Text(2)
	if !strings.HasPrefix(textnorm.NormalizeKey(raw), prefix) {
		return nil, false
	}
	s := &debtStore{code: row.Text(1), rawName: raw, name: raw}
	if mapped, ok := names[s.code]; ok && mapped != "" {
		s.name = mapped
	}
	s.key = StoreKey(s.name)
	s.rawKey = StoreKey(raw)
	return s, true
}

// postedToStore reports amounts booked against the store itself rather than a customer.
func (s *debtStore) postedToStore(code, name string) bool {
	if code != "" && textnorm.CodesEqual(code, s.code) {
		return true
	}
	nk := textnorm.NormalizeKey(name)
	if nk == "" {
		return false
	}
	for _, sk := range []string{s.key, s.rawKey} {
		if sk == "" {
			continue
		}
		if nk == sk || strings.HasPrefix(nk, sk) || strings.HasPrefix(sk, nk) {
			return true
		}
	}
	return false
}

// parseDebtAmount tries a plain decimal first, then the locale-aware coercion.
func parseDebtAmount(s string) decimal.Decimal {
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d
	}
	return textnorm.CoerceNumber(s)
}

// StoreKey canonical store identity shared by POS and ledger sides.
func StoreKey(name string) string {
	return textnorm.NormalizeKey(textnorm.StripParenSuffix(name))
}

func colOr(idx, fallback int) int {
	if idx < 0 {
		return fallback
	}
	return idx
}
