package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"posrecon/internal/grid"
	"posrecon/internal/textnorm"
)

var (
	ledgerDateRe = regexp.MustCompile(`Ngày \d{2}/\d{2}`)
	numericRe    = regexp.MustCompile(`^\(?[-+]?[\d.,\s\x{00a0}\x{202f}]*\d[\d.,\s\x{00a0}\x{202f}]*\)?$`)
)

// ExtractLedgerDate returns the first "Ngày dd/mm" token found in cells.
func ExtractLedgerDate(cells []string) (string, bool) {
	for _, c := range cells {
		if m := ledgerDateRe.FindString(c); m != "" {
			return m, true
		}
	}
	return "", false
}

// NormalizeColumnName header cell reduced to its comparison key.
func NormalizeColumnName(name string) string {
	return textnorm.NormalizeKey(strings.NewReplacer("\n", " ", "\r", " ").Replace(name))
}

// MatchPattern reports whether a normalized column equals one of the "|"-separated alternatives.
func MatchPattern(column, pattern string) bool {
	for _, alt := range strings.Split(pattern, "|") {
		if column == NormalizeColumnName(alt) {
			return true
		}
	}
	return false
}

// IsSequenceNumber reports whether s is a row number such as "3" or "12.".
func IsSequenceNumber(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return false
	}
	positive := false
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		if r != '0' {
			positive = true
		}
	}
	return positive
}

// LooksNumeric reports whether a cell holds a formatted number.
func LooksNumeric(s string) bool {
	return numericRe.MatchString(strings.TrimSpace(s))
}

// AmountWithFallback reads the amount at col; when that cell is empty it scans back from the end of the row
// over at most window non-empty cells right of minCol and takes the first numeric one.
func AmountWithFallback(row grid.Row, col, minCol, window int) decimal.Decimal {
	if row.Text(col) != "" {
		return row.Number(col)
	}
	seen := 0
	for i := row.LastNonEmpty(); i > minCol && seen < window; i-- {
		text := row.Text(i)
		if text == "" {
			continue
		}
		seen++
		if LooksNumeric(text) {
			return textnorm.CoerceNumber(text)
		}
	}
	return decimal.Zero
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
