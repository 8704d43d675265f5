package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"posrecon/internal/grid"
	"posrecon/internal/textnorm"
)

// Loader fetches the raw customer directory grid, header row first.
type Loader interface {
	LoadDirectory(ctx context.Context) (grid.Grid, error)
}

// XLSXLoader reads the directory from a local workbook.
type XLSXLoader struct {
	Path  string
	Sheet string // empty selects the first sheet
}

// LoadDirectory implements Loader.
func (l XLSXLoader) LoadDirectory(ctx context.Context) (grid.Grid, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open customer directory: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" || !containsSheet(f.GetSheetList(), sheet) {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("customer directory %s has no sheets", l.Path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read customer directory sheet %s: %w", sheet, err)
	}
	return grid.FromRows(rows), nil
}

func containsSheet(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// EntriesFromGrid maps directory rows to entries. Columns are found by header
// (TenKhachHang / MaKhach / Alias, with or without spaces and diacritics); without them the
// name is column 2 and the code column 3, or column 4 when the table is wider.
func EntriesFromGrid(g grid.Grid) ([]Entry, error) {
	if len(g) == 0 {
		return nil, nil
	}
	header := g[0]

	nameCol, codeCol, aliasCol := -1, -1, -1
	for j := range header {
		switch strings.ReplaceAll(textnorm.NormalizeKey(header.Text(j)), " ", "") {
		case "tenkhachhang":
			if nameCol < 0 {
				nameCol = j
			}
		case "makhach", "makhachhang":
			if codeCol < 0 {
				codeCol = j
			}
		case "alias":
			aliasCol = j
		}
	}

	if nameCol < 0 || codeCol < 0 {
		if len(header) < 2 {
			return nil, fmt.Errorf("customer directory is missing the TenKhachHang/MaKhach columns")
		}
		nameCol = 1
		codeCol = 1
		if len(header) > 2 {
			codeCol = 2
		}
		if len(header) > 3 {
			codeCol = 3
		}
	}

	entries := make([]Entry, 0, len(g)-1)
	for _, row := range g[1:] {
		if row.IsBlank() {
			continue
		}
		e := Entry{Name: row.Text(nameCol), Code: row.Text(codeCol)}
		if aliasCol >= 0 {
			for _, a := range strings.Split(row.Text(aliasCol), ";") {
				if a = strings.TrimSpace(a); a != "" {
					e.Aliases = append(e.Aliases, a)
				}
			}
		}
		if e.Name == "" && len(e.Aliases) == 0 {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Load fetches the directory through loader and builds an Index.
func Load(ctx context.Context, loader Loader, opts Options) (*Index, error) {
	g, err := loader.LoadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := EntriesFromGrid(g)
	if err != nil {
		return nil, err
	}
	return NewIndex(entries, opts), nil
}
