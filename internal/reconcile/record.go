// Package reconcile compares POS aggregates with accounting ledger rows.
// Every function here is pure: no I/O, no shared state.
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"posrecon/internal/model"
	"posrecon/internal/textnorm"
)

// Record notes. The wording is what operators see in the exported workbook.
const (
	NoteMissingOnPOS    = "Không có trên POS"
	NoteMissingOnLedger = "Không có trên file KT"
	NoteNoCode          = "(không mã)"
	NoteMatchedByName   = "Khớp theo tên"
	CashEntityLabel     = "Tiền mặt"
)

// Record one compared entity. JSON keys follow the web client contract.
type Record struct {
	Store        string `json:"chxd_name"`
	Entity       string `json:"product_name"`
	CustomerCode string `json:"customer_code,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	POSValue     Value  `json:"pos_value"`
	LedgerValue  Value  `json:"sse_value"`
	IsMatch      bool   `json:"is_match"`
	Note         string `json:"status"`
}

// Tables immutable reference data shared by all reconciliations of a process.
type Tables struct {
	Stores            []model.Store     // master store list
	Products          []string
	VolumeMapping     map[string]string // ledger entity code -> store code
	CashMapping       map[string]string
	ExcludedCustomers []string
	UnknownCode       string
}

// Summary counts for a result list.
type Summary struct {
	Total      int `json:"total"`
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
}

// Summarize counts matched and mismatched records.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.IsMatch {
			s.Matched++
		} else {
			s.Mismatched++
		}
	}
	return s
}

// compare applies the integer-rounded match criterion and the emission rule:
// a pair is reported when it mismatches or when either side is non-zero.
func compare(pos, ledger decimal.Decimal) (match, emit bool) {
	match = textnorm.RoundInt(pos) == textnorm.RoundInt(ledger)
	emit = !match || !pos.IsZero() || !ledger.IsZero()
	return match, emit
}

// sortRecords orders by store display name, then entity label, then customer code.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		return a.CustomerCode < b.CustomerCode
	})
}
