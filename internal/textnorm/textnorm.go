package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	decimalTailRe  = regexp.MustCompile(`[.,]\d{1,6}$`)
	parenSuffixRe  = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	keySeparatorRe = regexp.MustCompile(`[\s._\-]+`)
)

// spaceLike are the blank characters stripped before number analysis.
var spaceLike = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"\u2009", "",
	"\u2007", "",
	"\t", "",
)

// CoerceNumber converts a report cell into a decimal, returning zero for anything unparseable.
// Handles both dot-thousands/comma-decimal and comma-thousands/dot-decimal layouts.
func CoerceNumber(text string) decimal.Decimal {
	t := spaceLike.Replace(strings.TrimSpace(text))
	if t == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		negative = true
		t = strings.TrimSuffix(strings.TrimPrefix(t, "("), ")")
	}
	// a sign inside parentheses is redundant: "(-5)" is -5
	if strings.HasPrefix(t, "-") {
		negative = true
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}

	t = normalizeSeparators(t)
	if t == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

func normalizeSeparators(t string) string {
	lastDot := strings.LastIndex(t, ".")
	lastComma := strings.LastIndex(t, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			t = strings.ReplaceAll(t, ".", "")
			return strings.Replace(t, ",", ".", 1)
		}
		return strings.ReplaceAll(t, ",", "")
	case lastComma >= 0:
		if strings.Count(t, ",") == 1 && decimalTailRe.MatchString(t) {
			return strings.Replace(t, ",", ".", 1)
		}
		return strings.ReplaceAll(t, ",", "")
	case lastDot >= 0:
		if strings.Count(t, ".") == 1 && decimalTailRe.MatchString(t) {
			return t
		}
		return strings.ReplaceAll(t, ".", "")
	}
	return t
}

// NormalizeKey folds case and Vietnamese diacritics and collapses separators, for name matching.
func NormalizeKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = keySeparatorRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeEntityCode upper-cases a code, removes whitespace and fixes an O typed in place of 0 before a digit.
func NormalizeEntityCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	rs := []rune(b.String())
	// right to left so a folded digit can fold the O before it: "OO1" -> "001"
	for i := len(rs) - 2; i >= 0; i-- {
		if rs[i] == 'O' && unicode.IsDigit(rs[i+1]) {
			rs[i] = '0'
		}
	}
	return string(rs)
}

// CodesEqual compares two entity codes after normalization. Empty codes never match.
func CodesEqual(a, b string) bool {
	na, nb := NormalizeEntityCode(a), NormalizeEntityCode(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// StripParenSuffix removes one trailing "(...)" group, e.g. "CHXD Số 1 (Đông Á)" -> "CHXD Số 1".
func StripParenSuffix(text string) string {
	return strings.TrimSpace(parenSuffixRe.ReplaceAllString(text, ""))
}

// RoundInt rounds half away from zero to a whole currency unit.
func RoundInt(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// IsBlankCode reports whether a ledger code cell carries no usable code.
func IsBlankCode(code string) bool {
	c := strings.TrimSpace(code)
	return c == "" || strings.EqualFold(c, "none") || strings.EqualFold(c, "nan")
}
