package parser

import (
	"github.com/shopspring/decimal"

	"posrecon/internal/grid"
	"posrecon/internal/model"
	"posrecon/internal/textnorm"
)

// Options BH03Parser settings.
type Options struct {
	Layout            Layout
	Products          []string
	ExcludedCustomers []string
	UnknownCode       string
}

// BH03Parser extracts store totals and debt lines from the vendor BH03 report.
// It holds no mutable state and may be shared between goroutines.
type BH03Parser struct {
	layout      Layout
	products    []string
	productSet  map[string]bool
	excluded    map[string]bool
	resolver    CustomerResolver
	unknownCode string
}

// NewBH03Parser creates a parser; resolver may be nil, in which case every customer gets the unknown code.
func NewBH03Parser(opts Options, resolver CustomerResolver) *BH03Parser {
	p := &BH03Parser{
		layout:      opts.Layout,
		products:    append([]string(nil), opts.Products...),
		productSet:  make(map[string]bool, len(opts.Products)),
		excluded:    make(map[string]bool, len(opts.ExcludedCustomers)),
		resolver:    resolver,
		unknownCode: opts.UnknownCode,
	}
	for _, prod := range opts.Products {
		p.productSet[prod] = true
	}
	for _, name := range opts.ExcludedCustomers {
		if k := textnorm.NormalizeKey(name); k != "" {
			p.excluded[k] = true
		}
	}
	return p
}

// Parse runs both the totals extraction and the debt scan. ok is false when the report is empty.
func (p *BH03Parser) Parse(g grid.Grid, store model.Store) (Result, bool) {
	agg, ok := p.ProcessAndValidate(g, store)
	if !ok {
		return Result{}, false
	}
	return Result{Aggregate: agg, DebtLines: p.ExtractDebtLines(g, store)}, true
}

// ProcessAndValidate sums target product quantities in the IV section and reads revenue and cash.
// It returns false when the grid has no product section or volume, revenue and cash are all zero.
func (p *BH03Parser) ProcessAndValidate(g grid.Grid, store model.Store) (model.StoreAggregate, bool) {
	if len(g) == 0 {
		return model.StoreAggregate{}, false
	}

	start, end, found := p.productSection(g)
	if !found {
		return model.StoreAggregate{}, false
	}

	agg := model.StoreAggregate{
		StoreCode:     store.Code,
		StoreName:     store.Name,
		Products:      make(map[string]decimal.Decimal, len(p.products)),
		TotalQuantity: decimal.Zero,
		Revenue:       decimal.Zero,
		Cash:          decimal.Zero,
	}
	for _, prod := range p.products {
		agg.Products[prod] = decimal.Zero
	}

	for _, row := range g[start:end] {
		name := row.Text(p.layout.ColLabel)
		if !p.productSet[name] {
			continue
		}
		agg.Products[name] = agg.Products[name].Add(row.Number(p.layout.ColQuantity))
	}
	for _, prod := range p.products {
		agg.TotalQuantity = agg.TotalQuantity.Add(agg.Products[prod])
	}

	agg.Revenue, agg.Cash = p.revenueAndCash(g)

	if agg.IsEmpty() {
		return model.StoreAggregate{}, false
	}
	return agg, true
}

// productSection returns the row span after the first IV marker up to the next V./VI. marker,
// or to the end of the grid when no closing marker exists.
func (p *BH03Parser) productSection(g grid.Grid) (start, end int, found bool) {
	start = -1
	for i, row := range g {
		if hasAnyPrefix(row.Text(p.layout.ColMarker), []string{p.layout.ProductSectionStart}) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}

	end = len(g)
	for i := start; i < len(g); i++ {
		if hasAnyPrefix(g[i].Text(p.layout.ColMarker), p.layout.ProductSectionEnds) {
			end = i
			break
		}
	}
	return start, end, true
}

// revenueAndCash scans the whole grid. Both values come strictly from ColAmount; the last matching row wins.
func (p *BH03Parser) revenueAndCash(g grid.Grid) (revenue, cash decimal.Decimal) {
	revenue, cash = decimal.Zero, decimal.Zero
	l := p.layout
	for _, row := range g {
		marker, label := row.Text(l.ColMarker), row.Text(l.ColLabel)
		if marker == l.GrandTotalLabel || label == l.GrandTotalLabel {
			revenue = row.Number(l.ColAmount)
		}
		if marker == l.RetailMarker && label == l.RetailLabel {
			cash = row.Number(l.ColAmount)
		}
	}
	return revenue, cash
}

func (p *BH03Parser) resolve(name string) string {
	if p.resolver == nil {
		return p.unknownCode
	}
	code := p.resolver.Resolve(name)
	if code == "" {
		return p.unknownCode
	}
	return code
}

func (p *BH03Parser) isExcluded(name string) bool {
	return p.excluded[textnorm.NormalizeKey(name)]
}
