package summary

import (
	"github.com/shopspring/decimal"

	"posrecon/internal/model"
)

// DailyRow one TongHopBCBH row; Products follows the configured product order.
type DailyRow struct {
	STT      int               `json:"stt"`
	Store    string            `json:"store"`
	Products []decimal.Decimal `json:"products"`
	Total    decimal.Decimal   `json:"total"`
	Revenue  decimal.Decimal   `json:"revenue"`
	Cash     decimal.Decimal   `json:"cash"`
}

// DailyHeader column titles of the daily summary sheet.
func DailyHeader(products []string) []string {
	h := []string{"STT", "Tên CHXD"}
	h = append(h, products...)
	return append(h, "Tổng sản lượng", "Doanh thu", "Tiền mặt")
}

// DailyTable numbers the aggregates in the order given.
func DailyTable(aggs []model.StoreAggregate, products []string) []DailyRow {
	rows := make([]DailyRow, 0, len(aggs))
	for i, a := range aggs {
		qty := make([]decimal.Decimal, len(products))
		for j, p := range products {
			qty[j] = a.Quantity(p)
		}
		rows = append(rows, DailyRow{
			STT:      i + 1,
			Store:    a.StoreName,
			Products: qty,
			Total:    a.TotalQuantity,
			Revenue:  a.Revenue,
			Cash:     a.Cash,
		})
	}
	return rows
}
