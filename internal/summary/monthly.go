package summary

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyKind which value a monthly sheet tracks.
type MonthlyKind string

const (
	MonthlyVolume  MonthlyKind = "SL"
	MonthlyRevenue MonthlyKind = "DT"
)

// Title sheet title for the month.
func (k MonthlyKind) Title(month int) string {
	if k == MonthlyVolume {
		return fmt.Sprintf("Sản lượng tháng %d", month)
	}
	return fmt.Sprintf("Doanh thu tháng %d", month)
}

func (k MonthlyKind) places() (value, total, average int32) {
	if k == MonthlyVolume {
		return 3, 3, 3
	}
	return 0, 0, 2
}

// MonthlyRow one store across the days of a month. Days without data are invalid.
type MonthlyRow struct {
	STT     int                   `json:"stt"`
	Store   string                `json:"store"`
	Days    []decimal.NullDecimal `json:"days"`
	Total   decimal.Decimal       `json:"total"`
	Average decimal.NullDecimal   `json:"average"`
}

// MonthlySheet a full monthly table.
type MonthlySheet struct {
	Title   string       `json:"title"`
	LastDay int          `json:"lastDay"`
	Rows    []MonthlyRow `json:"rows"`
}

// Header column titles: STT, store, 1..last day, running total, daily average.
func (s MonthlySheet) Header() []string {
	h := []string{"STT", "Tên CHXD"}
	for d := 1; d <= s.LastDay; d++ {
		h = append(h, strconv.Itoa(d))
	}
	return append(h, "Lũy kế", "Bình quân ngày")
}

// DaysIn number of days in the month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyTable builds the sheet from store -> day -> value. Stores are sorted by name; the
// average is taken over days that have data, zero days included.
func MonthlyTable(year, month int, values map[string]map[int]decimal.Decimal, kind MonthlyKind) MonthlySheet {
	lastDay := DaysIn(year, month)
	valuePlaces, totalPlaces, avgPlaces := kind.places()

	stores := make([]string, 0, len(values))
	for s := range values {
		stores = append(stores, s)
	}
	sort.Strings(stores)

	sheet := MonthlySheet{Title: kind.Title(month), LastDay: lastDay}
	for i, store := range stores {
		row := MonthlyRow{STT: i + 1, Store: store, Days: make([]decimal.NullDecimal, lastDay)}
		sum := decimal.Zero
		n := 0
		for d := 1; d <= lastDay; d++ {
			v, ok := values[store][d]
			if !ok {
				continue
			}
			row.Days[d-1] = decimal.NewNullDecimal(v.Round(valuePlaces))
			sum = sum.Add(v)
			n++
		}
		row.Total = sum.Round(totalPlaces)
		if n > 0 {
			row.Average = decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))).Round(avgPlaces))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}
