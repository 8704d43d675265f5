package ledger

import (
	"github.com/shopspring/decimal"

	"posrecon/internal/grid"
	"posrecon/internal/parser"
	"posrecon/internal/textnorm"
)

// volumeFromGrid requires every configured product column "<Ngày dd/mm> <suffix>" to exist.
// Data starts two rows below the header; the row in between is a subtotal.
func volumeFromGrid(g grid.Grid, opts Options) (string, []VolumeRow, error) {
	h, err := locateHeader(g)
	if err != nil {
		return "", nil, err
	}
	header := g[h]

	cells := make([]string, len(header))
	for j := range header {
		cells[j] = header.Text(j)
	}
	date, ok := parser.ExtractLedgerDate(cells)
	if !ok {
		return "", nil, unreadable("no \"Ngày dd/mm\" column in header")
	}

	codeCol := headerIndex(header, "Mã khách")
	nameCol := headerIndex(header, "Tên khách")
	if codeCol < 0 || nameCol < 0 {
		return "", nil, unreadable("missing Mã khách/Tên khách columns")
	}
	if len(opts.VolumeColumns) == 0 {
		return "", nil, unreadable("no product columns configured")
	}

	productCols := make(map[string]int, len(opts.VolumeColumns))
	for _, c := range opts.VolumeColumns {
		want := date + " " + c.Suffix
		idx := headerIndex(header, want)
		if idx < 0 {
			return "", nil, unreadable("column %q not found", want)
		}
		productCols[c.Product] = idx
	}

	var rows []VolumeRow
	for i := h + 2; i < len(g); i++ {
		row := g[i]
		code := row.Text(codeCol)
		if textnorm.IsBlankCode(code) {
			continue
		}
		vr := VolumeRow{
			CustomerCode: code,
			CustomerName: row.Text(nameCol),
			Products:     make(map[string]decimal.Decimal, len(productCols)),
		}
		for prod, col := range productCols {
			vr.Products[prod] = row.Number(col).Round(0)
		}
		rows = append(rows, vr)
	}
	if len(rows) == 0 {
		return "", nil, unreadable("no data rows")
	}
	return date, rows, nil
}
