package parser

import (
	"posrecon/internal/grid"
	"posrecon/internal/model"
)

// DebtScanner walks report rows through the II/III debt sections.
// A scanner is single-use: create one per grid.
type DebtScanner struct {
	p        *BH03Parser
	store    model.Store
	state    DebtState
	customer string // empty when no customer context is active
}

// NewDebtScanner creates a scanner in the Outside state.
func (p *BH03Parser) NewDebtScanner(store model.Store) *DebtScanner {
	return &DebtScanner{p: p, store: store, state: Outside}
}

// State current scanner state.
func (s *DebtScanner) State() DebtState { return s.state }

// Customer name of the active customer context, "" when none.
func (s *DebtScanner) Customer() string { return s.customer }

// Step consumes one row and returns a debt line when the row is a product line of the active customer.
func (s *DebtScanner) Step(row grid.Row) (model.DebtLine, bool) {
	l := s.p.layout
	marker, label := row.Text(l.ColMarker), row.Text(l.ColLabel)

	switch {
	case s.isDebtSectionStart(marker):
		s.state = InsideDebtSection
		s.customer = ""
		return model.DebtLine{}, false
	case s.state == InsideDebtSection && s.isDebtSectionEnd(marker):
		s.state = Outside
		s.customer = ""
		return model.DebtLine{}, false
	case s.state == Outside:
		return model.DebtLine{}, false
	case s.isCustomerHeader(marker, label):
		if s.p.isExcluded(label) {
			s.customer = ""
		} else {
			s.customer = label
		}
		return model.DebtLine{}, false
	case s.isProductLine(marker, label):
		return s.debtLine(row, label), true
	}
	return model.DebtLine{}, false
}

func (s *DebtScanner) isDebtSectionStart(marker string) bool {
	return containsString(s.p.layout.DebtSectionStarts, marker)
}

func (s *DebtScanner) isDebtSectionEnd(marker string) bool {
	return hasAnyPrefix(marker, []string{s.p.layout.DebtSectionEnd})
}

// isCustomerHeader: sequence number in the marker column and a customer name next to it.
func (s *DebtScanner) isCustomerHeader(marker, label string) bool {
	return IsSequenceNumber(marker) && label != ""
}

// isProductLine: no sequence number, a product label, and an active customer.
func (s *DebtScanner) isProductLine(marker, label string) bool {
	return !IsSequenceNumber(marker) && label != "" && s.customer != ""
}

func (s *DebtScanner) debtLine(row grid.Row, product string) model.DebtLine {
	l := s.p.layout
	return model.DebtLine{
		StoreCode:    s.store.Code,
		Store:        s.store.Name,
		CustomerName: s.customer,
		CustomerCode: s.p.resolve(s.customer),
		Product:      product,
		Quantity:     row.Number(l.ColQuantity),
		UnitPrice:    row.Number(l.ColUnitPrice),
		Debt:         AmountWithFallback(row, l.ColAmount, l.ColUnitPrice, l.AmountFallbackWindow),
	}
}

// ExtractDebtLines runs a DebtScanner over the whole grid.
func (p *BH03Parser) ExtractDebtLines(g grid.Grid, store model.Store) []model.DebtLine {
	s := p.NewDebtScanner(store)
	var lines []model.DebtLine
	for _, row := range g {
		if line, ok := s.Step(row); ok {
			lines = append(lines, line)
		}
	}
	return lines
}
