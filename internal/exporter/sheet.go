package exporter

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// sheetWriter appends rows to one worksheet.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	bold   int
	widths map[int]float64
}

// newSheet creates (or renames the default) sheet and writes the header row in bold.
func newSheet(f *excelize.File, name string, header []string) (*sheetWriter, error) {
	if list := f.GetSheetList(); len(list) == 1 && list[0] == "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", name, err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	w := &sheetWriter{f: f, sheet: name, bold: bold, widths: map[int]float64{}}
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := w.append(values); err != nil {
		return nil, err
	}
	if err := w.styleRow(1, len(header)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sheetWriter) append(values []interface{}) error {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = cellValue(v)
		if s, ok := out[i].(string); ok && float64(len([]rune(s))) > w.widths[i] {
			w.widths[i] = float64(len([]rune(s)))
		}
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &out); err != nil {
		return fmt.Errorf("write %s row %d: %w", w.sheet, w.row, err)
	}
	return nil
}

// boldLast styles the last written row like the header.
func (w *sheetWriter) boldLast(cols int) error {
	return w.styleRow(w.row, cols)
}

func (w *sheetWriter) styleRow(row, cols int) error {
	if cols == 0 {
		return nil
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(cols, row)
	return w.f.SetCellStyle(w.sheet, from, to, w.bold)
}

// finish sets column widths from the longest text seen, clamped to [8, 50].
func (w *sheetWriter) finish() error {
	for i, width := range w.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width += 2
		if width < 8 {
			width = 8
		}
		if width > 50 {
			width = 50
		}
		if err := w.f.SetColWidth(w.sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// cellValue converts decimals to float cells and invalid nullable decimals to blanks.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.InexactFloat64()
	}
	return v
}
