// Package grid holds the raw two-dimensional cell grid decoded from report and ledger exports.
package grid

import (
	"strings"

	"github.com/shopspring/decimal"

	"posrecon/internal/textnorm"
)

// Row is one positional row; cells past the end read as empty.
type Row []string

// Grid is an ordered sequence of rows without any schema.
type Grid []Row

// FromRows wraps plain string rows, e.g. excelize GetRows output.
func FromRows(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = Row(r)
	}
	return g
}

// Text returns the trimmed cell at column i, or "" when the column is absent.
func (r Row) Text(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Number coerces the cell at column i; absent or unparseable cells are zero.
func (r Row) Number(i int) decimal.Decimal {
	return textnorm.CoerceNumber(r.Text(i))
}

// IsBlank reports whether every cell of the row is empty.
func (r Row) IsBlank() bool {
	for i := range r {
		if r.Text(i) != "" {
			return false
		}
	}
	return true
}

// LastNonEmpty returns the index of the last non-empty cell, or -1.
func (r Row) LastNonEmpty() int {
	for i := len(r) - 1; i >= 0; i-- {
		if r.Text(i) != "" {
			return i
		}
	}
	return -1
}

// Row returns row i or nil when out of range.
func (g Grid) Row(i int) Row {
	if i < 0 || i >= len(g) {
		return nil
	}
	return g[i]
}
