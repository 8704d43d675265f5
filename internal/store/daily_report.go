package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"posrecon/internal/model"
)

// SaveDailyReport replaces everything stored for date with the given aggregates and debt lines.
func (s *Store) SaveDailyReport(date time.Time, aggs []model.StoreAggregate, lines []model.DebtLine) error {
	day := date.Format(model.DateLayout)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"store_summaries", "product_quantities", "debt_lines"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE report_date = ?", day); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	sumStmt, err := tx.Prepare(`
		INSERT INTO store_summaries (report_date, store_code, store_name, seq, total_quantity, revenue, cash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer sumStmt.Close()

	qtyStmt, err := tx.Prepare(`
		INSERT INTO product_quantities (report_date, store_code, product, quantity)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer qtyStmt.Close()

	for i, a := range aggs {
		code := a.StoreCode
		if code == "" {
			code = a.StoreName
		}
		if _, err := sumStmt.Exec(day, code, a.StoreName, i, a.TotalQuantity, a.Revenue, a.Cash); err != nil {
			return fmt.Errorf("insert summary %s: %w", a.StoreName, err)
		}
		for product, qty := range a.Products {
			if _, err := qtyStmt.Exec(day, code, product, qty); err != nil {
				return fmt.Errorf("insert quantity %s/%s: %w", a.StoreName, product, err)
			}
		}
	}

	debtStmt, err := tx.Prepare(`
		INSERT INTO debt_lines (report_date, store_code, store_name, customer_name, customer_code,
			product, quantity, unit_price, debt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer debtStmt.Close()

	for _, l := range lines {
		if _, err := debtStmt.Exec(day, l.StoreCode, l.Store, l.CustomerName, l.CustomerCode,
			l.Product, l.Quantity, l.UnitPrice, l.Debt); err != nil {
			return fmt.Errorf("insert debt line %s/%s: %w", l.Store, l.CustomerName, err)
		}
	}

	return tx.Commit()
}

// GetSummaries returns the aggregates stored for date, in the order they were saved.
func (s *Store) GetSummaries(date time.Time) ([]model.StoreAggregate, error) {
	day := date.Format(model.DateLayout)

	rows, err := s.db.Query(`
		SELECT store_code, store_name, total_quantity, revenue, cash
		FROM store_summaries
		WHERE report_date = ?
		ORDER BY seq, store_name
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query summaries failed: %w", err)
	}
	defer rows.Close()

	var out []model.StoreAggregate
	index := map[string]int{}
	for rows.Next() {
		a := model.StoreAggregate{ReportDate: date, Products: map[string]decimal.Decimal{}}
		if err := rows.Scan(&a.StoreCode, &a.StoreName, &a.TotalQuantity, &a.Revenue, &a.Cash); err != nil {
			return nil, fmt.Errorf("scan summary failed: %w", err)
		}
		index[a.StoreCode] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries failed: %w", err)
	}
	rows.Close()

	qrows, err := s.db.Query(`
		SELECT store_code, product, quantity FROM product_quantities WHERE report_date = ?
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query quantities failed: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var code, product string
		var qty decimal.Decimal
		if err := qrows.Scan(&code, &product, &qty); err != nil {
			return nil, fmt.Errorf("scan quantity failed: %w", err)
		}
		if i, ok := index[code]; ok {
			out[i].Products[product] = qty
		}
	}
	return out, qrows.Err()
}

// GetDebtLines returns the debt lines stored for date, in insertion order.
func (s *Store) GetDebtLines(date time.Time) ([]model.DebtLine, error) {
	rows, err := s.db.Query(`
		SELECT store_code, store_name, customer_name, customer_code, product, quantity, unit_price, debt
		FROM debt_lines
		WHERE report_date = ?
		ORDER BY id
	`, date.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query debt lines failed: %w", err)
	}
	defer rows.Close()

	var out []model.DebtLine
	for rows.Next() {
		var l model.DebtLine
		if err := rows.Scan(&l.StoreCode, &l.Store, &l.CustomerName, &l.CustomerCode,
			&l.Product, &l.Quantity, &l.UnitPrice, &l.Debt); err != nil {
			return nil, fmt.Errorf("scan debt line failed: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// HasReport reports whether any aggregate is stored for date.
func (s *Store) HasReport(date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM store_summaries WHERE report_date = ?`,
		date.Format(model.DateLayout)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count summaries failed: %w", err)
	}
	return n > 0, nil
}
