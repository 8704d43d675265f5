package parser

import (
	"regexp"

	"posrecon/internal/grid"
)

// LedgerHeaderTokens normalized cell values that mark a ledger header row.
var LedgerHeaderTokens = []string{
	"ma khach", "ma kh", "ma khach hang",
	"ten khach", "ten khach hang",
	"phat sinh no", "ps no",
	"stt",
}

var cashHeaderRe = regexp.MustCompile(`Bán - \d{2}/\d{2}`)

// headerScanLimit rows examined when looking for a header row.
const headerScanLimit = 30

// FindHeaderRow returns the index of the first row whose normalized cells intersect tokens, or -1.
func FindHeaderRow(g grid.Grid, tokens []string) int {
	want := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		want[t] = true
	}
	for i, row := range g {
		for j := range row {
			if want[NormalizeColumnName(row.Text(j))] {
				return i
			}
		}
	}
	return -1
}

// SheetRecognizer classifies a grid as a BH03 report, a ledger export or a customer directory.
type SheetRecognizer struct {
	layout Layout
}

// NewSheetRecognizer creates a recognizer for the given report layout.
func NewSheetRecognizer(layout Layout) *SheetRecognizer {
	return &SheetRecognizer{layout: layout}
}

// Recognize picks the best scoring kind; anything under 0.5 confidence is unknown.
func (r *SheetRecognizer) Recognize(g grid.Grid) RecognitionResult {
	if res := r.recognizeReport(g); res.Confidence >= 0.5 {
		return res
	}

	header := FindHeaderRow(g, LedgerHeaderTokens)
	if header < 0 || header > headerScanLimit {
		if res := r.recognizeDirectory(g); res.Confidence >= 0.5 {
			return res
		}
		return RecognitionResult{Kind: SheetKindUnknown, HeaderRow: -1}
	}

	columns := make([]string, 0, len(g[header]))
	raw := make([]string, 0, len(g[header]))
	for j := range g[header] {
		raw = append(raw, g[header].Text(j))
		columns = append(columns, NormalizeColumnName(g[header].Text(j)))
	}

	best := RecognitionResult{Kind: SheetKindUnknown, HeaderRow: header}
	for _, res := range []RecognitionResult{
		r.recognizeVolume(raw, columns),
		r.recognizeCash(raw, columns),
		r.recognizeDebt(columns),
	} {
		if res.Confidence > best.Confidence {
			best = res
			best.HeaderRow = header
		}
	}
	if best.Confidence < 0.5 {
		if res := r.recognizeDirectory(g); res.Confidence >= 0.5 {
			return res
		}
		return RecognitionResult{Kind: SheetKindUnknown, HeaderRow: header}
	}
	return best
}

// recognizeReport scores the section markers and labels of a BH03 report.
func (r *SheetRecognizer) recognizeReport(g grid.Grid) RecognitionResult {
	l := r.layout
	checks := map[string]bool{
		"retail": false, "debt": false, "products": false, "total": false,
	}
	for _, row := range g {
		marker, label := row.Text(l.ColMarker), row.Text(l.ColLabel)
		switch {
		case marker == l.RetailMarker && label == l.RetailLabel:
			checks["retail"] = true
		case containsString(l.DebtSectionStarts, marker):
			checks["debt"] = true
		case hasAnyPrefix(marker, []string{l.ProductSectionStart}):
			checks["products"] = true
		}
		if label == l.GrandTotalLabel || marker == l.GrandTotalLabel {
			checks["total"] = true
		}
	}

	matched := 0
	for _, ok := range checks {
		if ok {
			matched++
		}
	}
	confidence := float64(matched) / float64(len(checks))
	// a report without its product section cannot be parsed
	if !checks["products"] && confidence > 0.25 {
		confidence = 0.25
	}
	return RecognitionResult{Kind: SheetKindReport, Confidence: confidence, HeaderRow: -1}
}

func (r *SheetRecognizer) recognizeVolume(raw, columns []string) RecognitionResult {
	score := keyFieldScore(columns, []string{"ma khach", "ten khach"})
	if _, ok := ExtractLedgerDate(raw); ok {
		score = score*0.5 + 0.5
	} else {
		score *= 0.4
	}
	return RecognitionResult{Kind: SheetKindVolumeLedger, Confidence: score}
}

func (r *SheetRecognizer) recognizeCash(raw, columns []string) RecognitionResult {
	score := keyFieldScore(columns, []string{"ma khach|ma kh"})
	hasCash := false
	for _, c := range raw {
		if cashHeaderRe.MatchString(c) {
			hasCash = true
			break
		}
	}
	if hasCash {
		// cash wins ties against volume when both date columns exist
		score = score*0.5 + 0.55
	} else {
		score *= 0.4
	}
	return RecognitionResult{Kind: SheetKindCashLedger, Confidence: score}
}

func (r *SheetRecognizer) recognizeDebt(columns []string) RecognitionResult {
	score := keyFieldScore(columns, []string{
		"phat sinh no|ps no",
		"ma khach|ma kh|ma khach hang",
		"ten khach|ten khach hang",
		"stt",
	})
	if !containsString(columns, "phat sinh no") && !containsString(columns, "ps no") {
		score *= 0.4
	}
	return RecognitionResult{Kind: SheetKindDebtLedger, Confidence: score}
}

func (r *SheetRecognizer) recognizeDirectory(g grid.Grid) RecognitionResult {
	if len(g) == 0 {
		return RecognitionResult{Kind: SheetKindDirectory, HeaderRow: -1}
	}
	columns := make([]string, 0, len(g[0]))
	for j := range g[0] {
		columns = append(columns, NormalizeColumnName(g[0].Text(j)))
	}
	score := keyFieldScore(columns, []string{"tenkhachhang|ten khach hang", "makhach|ma khach", "alias"})
	if score > 0 {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return RecognitionResult{Kind: SheetKindDirectory, Confidence: score, HeaderRow: 0}
}

// keyFieldScore fraction of key fields present among columns.
func keyFieldScore(columns []string, keyFields []string) float64 {
	if len(keyFields) == 0 {
		return 0
	}
	matchCount := 0
	for _, field := range keyFields {
		for _, col := range columns {
			if MatchPattern(col, field) {
				matchCount++
				break
			}
		}
	}
	return float64(matchCount) / float64(len(keyFields))
}
