package ledger

import (
	"fmt"
	"time"

	"posrecon/internal/grid"
	"posrecon/internal/textnorm"
)

// CashColumn header of the cash-sale column for date, e.g. "Bán - 22/08".
func CashColumn(date time.Time) string {
	return fmt.Sprintf("Bán - %02d/%02d", date.Day(), int(date.Month()))
}

func cashFromGrid(g grid.Grid, date time.Time) ([]CashRow, error) {
	if date.IsZero() {
		return nil, unreadable("cash ledger needs a reconciliation date")
	}
	h, err := locateHeader(g)
	if err != nil {
		return nil, err
	}
	header := g[h]

	want := CashColumn(date)
	cashCol := headerIndex(header, want)
	if cashCol < 0 {
		return nil, unreadable("column %q not found", want)
	}
	codeCol := headerIndexByKey(header, "ma khach", "ma kh", "ma khach hang")
	if codeCol < 0 {
		return nil, unreadable("missing entity code column")
	}
	nameCol := headerIndexByKey(header, "ten khach", "ten khach hang")

	var rows []CashRow
	for i := h + 2; i < len(g); i++ {
		row := g[i]
		code := row.Text(codeCol)
		if textnorm.IsBlankCode(code) {
			continue
		}
		rows = append(rows, CashRow{
			CustomerCode: code,
			CustomerName: row.Text(nameCol),
			Cash:         row.Number(cashCol),
		})
	}
	if len(rows) == 0 {
		return nil, unreadable("no data rows")
	}
	return rows, nil
}
