package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store a fuel station (CHXD) from the master list.
type Store struct {
	Code string `json:"code" toml:"code"` // POS store code
	Name string `json:"name" toml:"name"` // display name
}

// StoreAggregate one store's daily totals taken from its BH03 report.
type StoreAggregate struct {
	StoreCode     string                     `json:"storeCode"`
	StoreName     string                     `json:"storeName"`
	ReportDate    time.Time                  `json:"reportDate"`
	Products      map[string]decimal.Decimal `json:"products"`      // target product -> quantity
	TotalQuantity decimal.Decimal            `json:"totalQuantity"` // sum of Products
	Revenue       decimal.Decimal            `json:"revenue"`       // grand-total row amount
	Cash          decimal.Decimal            `json:"cash"`          // retail-sale row amount
}

// Quantity returns the quantity for product, zero when the product is absent.
func (a StoreAggregate) Quantity(product string) decimal.Decimal {
	if a.Products == nil {
		return decimal.Zero
	}
	return a.Products[product]
}

// IsEmpty reports whether the aggregate carries no volume, revenue or cash.
func (a StoreAggregate) IsEmpty() bool {
	return a.TotalQuantity.IsZero() && a.Revenue.IsZero() && a.Cash.IsZero()
}
