package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"posrecon/internal/ledger"
	"posrecon/internal/reconcile"
)

// SheetReconcile sheet holding reconciliation results.
const SheetReconcile = "KetQuaDoiSoat"

// ReconcileHeader column titles per reconciliation kind.
func ReconcileHeader(kind ledger.Kind) []string {
	switch kind {
	case ledger.KindCash:
		return []string{"Cửa hàng", "Đối tượng", "Tiền mặt POS (VND)", "Tiền mặt Kế toán (VND)", "Khớp", "Ghi chú"}
	case ledger.KindDebt:
		return []string{"Cửa hàng", "Mã khách", "Tên khách hàng", "Phát sinh nợ POS (VND)", "Phát sinh nợ Kế toán (VND)", "Khớp", "Ghi chú"}
	default:
		return []string{"Cửa hàng", "Mặt hàng", "Sản lượng POS", "Sản lượng Kế toán", "Khớp", "Ghi chú"}
	}
}

// ReconcileFileName e.g. KetQuaDoiSoat_CongNo_14-03-2025.xlsx.
func ReconcileFileName(kind ledger.Kind, date time.Time) string {
	return fmt.Sprintf("KetQuaDoiSoat_%s_%s.xlsx", kind, date.Format("02-01-2006"))
}

// ReconcileWorkbook writes records into a single-sheet workbook.
func ReconcileWorkbook(kind ledger.Kind, records []reconcile.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	header := ReconcileHeader(kind)
	w, err := newSheet(f, SheetReconcile, header)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for _, r := range records {
		var values []interface{}
		if kind == ledger.KindDebt {
			values = []interface{}{r.Store, r.CustomerCode, r.CustomerName}
		} else {
			values = []interface{}{r.Store, r.Entity}
		}
		values = append(values, valueCell(r.POSValue), valueCell(r.LedgerValue), matchText(r.IsMatch), r.Note)
		if err := w.append(values); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := w.finish(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.AutoFilter(SheetReconcile, "A1:"+lastCell(len(header), w.row), nil); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("set auto filter: %w", err)
	}
	return f, nil
}

func valueCell(v reconcile.Value) interface{} {
	if !v.Valid {
		return reconcile.NotApplicable
	}
	return v.Amount
}

func matchText(ok bool) string {
	if ok {
		return "Khớp"
	}
	return "Lệch"
}

func lastCell(cols, rows int) string {
	c, _ := excelize.CoordinatesToCellName(cols, rows)
	return c
}
