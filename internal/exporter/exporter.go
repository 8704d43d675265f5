// Package exporter writes the Excel workbooks handed to operators: daily and monthly summaries,
// debt tables and reconciliation results.
package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"posrecon/internal/config"
	"posrecon/internal/store"
	"posrecon/internal/summary"
)

// Exporter builds workbooks from stored daily results.
type Exporter struct {
	store *store.Store
	biz   config.BusinessConfig
}

// NewExporter creates an exporter.
func NewExporter(st *store.Store, biz config.BusinessConfig) *Exporter {
	return &Exporter{store: st, biz: biz}
}

// Sheet names of the daily workbook.
const (
	SheetDaily      = "TongHopBCBH"
	SheetDebtTotals = "TongHopCongNo"
	SheetDebtDetail = "ChiTietCongNo"
)

// ErrNoData nothing is stored for the requested period.
var ErrNoData = fmt.Errorf("no stored data")

// ExportDaily builds the daily workbook: sales summary plus both debt tables.
func (e *Exporter) ExportDaily(date time.Time, progress func(ProgressEvent)) (*excelize.File, error) {
	st := newStages(progress, "Đọc dữ liệu", "Tổng hợp BCBH", "Tổng hợp công nợ", "Chi tiết công nợ")
	st.step()
	aggs, err := e.store.GetSummaries(date)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	if len(aggs) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, date.Format("02/01/2006"))
	}
	lines, err := e.store.GetDebtLines(date)
	if err != nil {
		return nil, fmt.Errorf("read debt lines: %w", err)
	}

	f := excelize.NewFile()
	st.step()
	if err := writeDaily(f, summary.DailyTable(aggs, e.biz.Products), e.biz.Products); err != nil {
		_ = f.Close()
		return nil, err
	}

	st.step()
	blocks := summary.DebtSummary(lines, e.biz.ExcludedCustomers, e.biz.UnknownCode)
	if err := writeDebtTotals(f, blocks); err != nil {
		_ = f.Close()
		return nil, err
	}
	st.step()
	if err := writeDebtDetail(f, blocks); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	st.done()
	return f, nil
}

// ExportMonthly builds the two monthly sheets (volume and revenue).
func (e *Exporter) ExportMonthly(year, month int, progress func(ProgressEvent)) (*excelize.File, error) {
	st := newStages(progress, "Đọc dữ liệu tháng", "Sản lượng", "Doanh thu")
	st.step()
	volume, revenue, err := e.store.MonthlyValues(year, month)
	if err != nil {
		return nil, fmt.Errorf("read monthly values: %w", err)
	}
	if len(volume) == 0 {
		return nil, fmt.Errorf("%w for %02d/%d", ErrNoData, month, year)
	}

	f := excelize.NewFile()
	st.step()
	if err := writeMonthly(f, summary.MonthlyTable(year, month, volume, summary.MonthlyVolume)); err != nil {
		_ = f.Close()
		return nil, err
	}
	st.step()
	if err := writeMonthly(f, summary.MonthlyTable(year, month, revenue, summary.MonthlyRevenue)); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	st.done()
	return f, nil
}

// DailyFileName e.g. TongHopBCBH_14-03-2025.xlsx.
func DailyFileName(date time.Time) string {
	return fmt.Sprintf("TongHopBCBH_%s.xlsx", date.Format("02-01-2006"))
}

// MonthlyFileName e.g. TongHopThang_03-2025.xlsx.
func MonthlyFileName(year, month int) string {
	return fmt.Sprintf("TongHopThang_%02d-%d.xlsx", month, year)
}

func writeDaily(f *excelize.File, rows []summary.DailyRow, products []string) error {
	header := summary.DailyHeader(products)
	w, err := newSheet(f, SheetDaily, header)
	if err != nil {
		return err
	}
	for _, r := range rows {
		values := []interface{}{r.STT, r.Store}
		for _, q := range r.Products {
			values = append(values, q)
		}
		values = append(values, r.Total, r.Revenue, r.Cash)
		if err := w.append(values); err != nil {
			return err
		}
	}
	return w.finish()
}

func writeDebtTotals(f *excelize.File, blocks []summary.DebtBlock) error {
	header := []string{"STT", "Tên Khách hàng", "Mã khách hàng", "Phát sinh nợ"}
	w, err := newSheet(f, SheetDebtTotals, header)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := w.append([]interface{}{"", b.Store, "", ""}); err != nil {
			return err
		}
		if err := w.boldLast(len(header)); err != nil {
			return err
		}
		for _, c := range b.Customers {
			if err := w.append([]interface{}{c.STT, c.Name, c.Code, c.Debt}); err != nil {
				return err
			}
		}
	}
	return w.finish()
}

func writeDebtDetail(f *excelize.File, blocks []summary.DebtBlock) error {
	header := []string{"STT", "Tên Khách hàng", "Mã khách hàng", "Sản lượng", "Đơn giá", "Phát sinh nợ"}
	w, err := newSheet(f, SheetDebtDetail, header)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := w.append([]interface{}{"", b.Store, "", "", "", ""}); err != nil {
			return err
		}
		if err := w.boldLast(len(header)); err != nil {
			return err
		}
		for _, c := range b.Customers {
			if err := w.append([]interface{}{c.STT, c.Name, c.Code, "", "", c.Debt}); err != nil {
				return err
			}
			for _, l := range c.Lines {
				if err := w.append([]interface{}{"", l.Product, "", l.Quantity, l.UnitPrice, l.Debt}); err != nil {
					return err
				}
			}
		}
	}
	return w.finish()
}

func writeMonthly(f *excelize.File, sheet summary.MonthlySheet) error {
	w, err := newSheet(f, sheet.Title, sheet.Header())
	if err != nil {
		return err
	}
	for _, r := range sheet.Rows {
		values := []interface{}{r.STT, r.Store}
		for _, d := range r.Days {
			values = append(values, d)
		}
		values = append(values, r.Total, r.Average)
		if err := w.append(values); err != nil {
			return err
		}
	}
	return w.finish()
}
