package parser

// Layout column positions and section labels of the vendor BH03 report.
// Column indices are zero-based.
type Layout struct {
	ColMarker    int // section marker / sequence number
	ColLabel     int // product or customer label
	ColQuantity  int
	ColUnitPrice int
	ColAmount    int // revenue, cash and debt amount

	// AmountFallbackWindow number of trailing non-empty cells scanned when the debt amount cell is empty.
	AmountFallbackWindow int

	ProductSectionStart string
	ProductSectionEnds  []string
	DebtSectionStarts   []string
	DebtSectionEnd      string

	GrandTotalLabel string
	RetailMarker    string
	RetailLabel     string
}

// DefaultLayout layout of the BH03 export as produced by the vendor portal.
func DefaultLayout() Layout {
	return Layout{
		ColMarker:            0,
		ColLabel:             1,
		ColQuantity:          6,
		ColUnitPrice:         7,
		ColAmount:            16,
		AmountFallbackWindow: 4,
		ProductSectionStart:  "IV",
		ProductSectionEnds:   []string{"V.", "VI."},
		DebtSectionStarts:    []string{"II", "III"},
		DebtSectionEnd:       "IV",
		GrandTotalLabel:      "Tổng cộng",
		RetailMarker:         "I",
		RetailLabel:          "Xuất bán lẻ",
	}
}
