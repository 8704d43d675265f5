package model

import "github.com/shopspring/decimal"

// DebtLine one product sold on credit to a customer, from the report's debt section.
type DebtLine struct {
	StoreCode    string          `json:"storeCode"`
	Store        string          `json:"store"`
	CustomerName string          `json:"customerName"`
	CustomerCode string          `json:"customerCode"` // directory code or the unknown sentinel
	Product      string          `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Debt         decimal.Decimal `json:"debt"`
}
