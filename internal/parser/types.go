package parser

import "posrecon/internal/model"

// SheetKind kind of grid recognized from its content.
type SheetKind string

const (
	SheetKindReport       SheetKind = "bh03_report"
	SheetKindVolumeLedger SheetKind = "volume_ledger"
	SheetKindCashLedger   SheetKind = "cash_ledger"
	SheetKindDebtLedger   SheetKind = "debt_ledger"
	SheetKindDirectory    SheetKind = "customer_directory"
	SheetKindUnknown      SheetKind = "unknown"
)

// RecognitionResult outcome of Recognize.
type RecognitionResult struct {
	Kind       SheetKind `json:"kind"`
	Confidence float64   `json:"confidence"` // 0-1
	HeaderRow  int       `json:"headerRow"`  // -1 for reports
}

// Result everything extracted from one store's report.
type Result struct {
	Aggregate model.StoreAggregate `json:"aggregate"`
	DebtLines []model.DebtLine     `json:"debtLines"`
}

// CustomerResolver maps a free-text customer name to its directory code.
type CustomerResolver interface {
	Resolve(name string) string
}

// DebtState position of the debt scanner relative to the debt sections.
type DebtState int

const (
	Outside DebtState = iota
	InsideDebtSection
)

func (s DebtState) String() string {
	if s == InsideDebtSection {
		return "INSIDE_DEBT_SECTION"
	}
	return "OUTSIDE"
}
