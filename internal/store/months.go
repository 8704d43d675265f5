package store

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// YearMonthStat a month that has stored reports.
type YearMonthStat struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Days   int `json:"days"`
	Stores int `json:"stores"`
}

// ListAvailableMonths months with data, newest first.
func (s *Store) ListAvailableMonths() ([]YearMonthStat, error) {
	rows, err := s.db.Query(`
		SELECT
			CAST(substr(report_date, 1, 4) AS INTEGER) AS y,
			CAST(substr(report_date, 6, 2) AS INTEGER) AS m,
			COUNT(DISTINCT report_date),
			COUNT(DISTINCT store_code)
		FROM store_summaries
		GROUP BY y, m
		ORDER BY y DESC, m DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query available months failed: %w", err)
	}
	defer rows.Close()

	var out []YearMonthStat
	for rows.Next() {
		var it YearMonthStat
		if err := rows.Scan(&it.Year, &it.Month, &it.Days, &it.Stores); err != nil {
			return nil, fmt.Errorf("scan available months failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate available months failed: %w", err)
	}
	return out, nil
}

// MonthlyValues per store name, per day of month: total volume and revenue.
func (s *Store) MonthlyValues(year, month int) (volume, revenue map[string]map[int]decimal.Decimal, err error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	rows, err := s.db.Query(`
		SELECT report_date, store_name, total_quantity, revenue
		FROM store_summaries
		WHERE report_date LIKE ?
	`, prefix+"%")
	if err != nil {
		return nil, nil, fmt.Errorf("query monthly values failed: %w", err)
	}
	defer rows.Close()

	volume = map[string]map[int]decimal.Decimal{}
	revenue = map[string]map[int]decimal.Decimal{}
	for rows.Next() {
		var date, store string
		var qty, rev decimal.Decimal
		if err := rows.Scan(&date, &store, &qty, &rev); err != nil {
			return nil, nil, fmt.Errorf("scan monthly values failed: %w", err)
		}
		day, err := strconv.Atoi(date[len(prefix):])
		if err != nil {
			return nil, nil, fmt.Errorf("bad report date %q: %w", date, err)
		}
		if volume[store] == nil {
			volume[store] = map[int]decimal.Decimal{}
			revenue[store] = map[int]decimal.Decimal{}
		}
		volume[store][day] = qty
		revenue[store][day] = rev
	}
	return volume, revenue, rows.Err()
}
