// Package summary builds the tabular summaries published after a daily run:
// the daily sales table, the debt tables and the monthly per-day tables.
package summary

import (
	"sort"

	"github.com/shopspring/decimal"

	"posrecon/internal/model"
	"posrecon/internal/textnorm"
)

// DebtCustomer one customer's total debt at one store, with the lines it was summed from.
type DebtCustomer struct {
	STT   int              `json:"stt"`
	Name  string           `json:"name"`
	Code  string           `json:"code"`
	Debt  decimal.Decimal  `json:"debt"`
	Lines []model.DebtLine `json:"lines"`
}

// DebtBlock customers of one store, numbered from 1.
type DebtBlock struct {
	Store     string         `json:"store"`
	Customers []DebtCustomer `json:"customers"`
}

// Total sum of the block's customer debts.
func (b DebtBlock) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range b.Customers {
		sum = sum.Add(c.Debt)
	}
	return sum
}

// DebtSummary groups debt lines by store and customer name. Excluded customers are dropped;
// a customer's code is its first real code, else the first non-empty one, else unknownCode.
func DebtSummary(lines []model.DebtLine, excluded []string, unknownCode string) []DebtBlock {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[textnorm.NormalizeKey(name)] = true
	}

	type key struct{ store, name string }
	groups := map[key]*DebtCustomer{}
	for _, l := range lines {
		if skip[textnorm.NormalizeKey(l.CustomerName)] {
			continue
		}
		k := key{l.Store, l.CustomerName}
		c, ok := groups[k]
		if !ok {
			c = &DebtCustomer{Name: l.CustomerName, Debt: decimal.Zero}
			groups[k] = c
		}
		c.Debt = c.Debt.Add(l.Debt)
		c.Lines = append(c.Lines, l)
	}

	byStore := map[string][]DebtCustomer{}
	for k, c := range groups {
		c.Code = pickCode(c.Lines, unknownCode)
		byStore[k.store] = append(byStore[k.store], *c)
	}

	stores := make([]string, 0, len(byStore))
	for s := range byStore {
		stores = append(stores, s)
	}
	sort.Strings(stores)

	blocks := make([]DebtBlock, 0, len(stores))
	for _, s := range stores {
		customers := byStore[s]
		sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
		for i := range customers {
			customers[i].STT = i + 1
		}
		blocks = append(blocks, DebtBlock{Store: s, Customers: customers})
	}
	return blocks
}

func pickCode(lines []model.DebtLine, unknownCode string) string {
	codes := make([]string, 0, len(lines))
	for _, l := range lines {
		if c := l.CustomerCode; !textnorm.IsBlankCode(c) {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	for _, c := range codes {
		if c != unknownCode {
			return c
		}
	}
	if len(codes) > 0 {
		return codes[0]
	}
	return unknownCode
}
