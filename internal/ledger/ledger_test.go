package ledger

import (
	"errors"
	"html"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func xmlSpreadsheet(rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString(`<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet" xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet"><Worksheet ss:Name="Sheet1"><Table>`)
	for _, r := range rows {
		b.WriteString("<Row>")
		for _, c := range r {
			if c == "" {
				b.WriteString("<Cell/>")
				continue
			}
			b.WriteString(`<Cell><Data ss:Type="String">` + html.EscapeString(c) + `</Data></Cell>`)
		}
		b.WriteString("</Row>")
	}
	b.WriteString(`</Table></Worksheet></Workbook>`)
	return []byte(b.String())
}

func testOptions() Options {
	return Options{
		VolumeColumns: []VolumeColumn{
			{Product: "Dầu Điêzen 0,001S Mức 5", Suffix: "Dầu DO 0,001S-V"},
			{Product: "Dầu mỡ nhờn", Suffix: "Dầu mỡ nhờn"},
			{Product: "Dầu Điêzen 0,05S Mức 2", Suffix: "DO"},
			{Product: "Xăng RON95 Mức 3", Suffix: "Xăng A95"},
			{Product: "Xăng E5 RON92 Mức 2", Suffix: "Xăng E5"},
		},
		DebtStoreRowPrefix:   "Cửa hàng",
		PlaceholderCustomers: []string{"Khách lẻ"},
		DebtStoreNames:       map[string]string{"CH01KT": "CHXD Số 1"},
	}
}

func volumeHeader(date string) []string {
	return []string{"Mã khách", "Tên khách",
		date + " Dầu DO 0,001S-V", date + " Dầu mỡ nhờn", date + " DO", date + " Xăng A95", date + " Xăng E5"}
}

func TestParse_Volume(t *testing.T) {
	t.Parallel()

	data := xmlSpreadsheet([][]string{
		{"SỔ TỔNG HỢP"},
		{"Từ ngày ... đến ngày ..."},
		{""},
		{""},
		volumeHeader("Ngày 22/08"),
		{"", "Tổng cộng", "1", "1", "1", "1", "1"},
		{"KT01", "CHXD Số 1", "100", "0", "250,4", "1.234,6", "0"},
		{"None", "ghost", "5"},
		{"", "blank", "5"},
		{"KT02", "CHXD Số 2", "", "", "", "50"},
	})

	ds, err := Parse(KindVolume, data, time.Time{}, testOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Date != "Ngày 22/08" || len(ds.Volume) != 2 {
		t.Fatalf("dataset got date=%q rows=%d", ds.Date, len(ds.Volume))
	}
	r := ds.Volume[0]
	if r.CustomerCode != "KT01" || !r.Products["Dầu Điêzen 0,05S Mức 2"].Equal(decimal.NewFromInt(250)) {
		t.Fatalf("row 0 got=%+v", r)
	}
	if !r.Products["Xăng RON95 Mức 3"].Equal(decimal.NewFromInt(1235)) {
		t.Fatalf("rounding got=%s", r.Products["Xăng RON95 Mức 3"])
	}
	if !ds.Volume[1].Products["Xăng RON95 Mức 3"].Equal(decimal.NewFromInt(50)) {
		t.Fatalf("row 1 got=%+v", ds.Volume[1])
	}
}

func TestParse_VolumeMissingColumnFailsClosed(t *testing.T) {
	t.Parallel()

	header := volumeHeader("Ngày 22/08")
	header[5] = "Ngày 22/08 Xăng A92"
	data := xmlSpreadsheet([][]string{header, {""}, {"KT01", "x", "1", "1", "1", "1", "1"}})

	_, err := Parse(KindVolume, data, time.Time{}, testOptions())
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("err got=%v want ErrUnreadable", err)
	}

	noDate := xmlSpreadsheet([][]string{{"Mã khách", "Tên khách", "Xăng A95"}, {""}, {"KT01", "x", "1"}})
	if _, err := Parse(KindVolume, noDate, time.Time{}, testOptions()); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("missing date err got=%v", err)
	}
}

func TestParse_Cash(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)
	data := xmlSpreadsheet([][]string{
		{"BẢNG KÊ TIỀN MẶT"},
		{"Mã khách", "Tên khách", "Bán - 21/08", "Bán - 22/08"},
		{"", "Cộng", "1", "1"},
		{"KT01", "CHXD Số 1", "999", "12.500.000"},
		{" ", "blank", "1", "1"},
		{"KT02", "CHXD Số 2", "", "(1.000,00)"},
	})

	ds, err := Parse(KindCash, data, date, testOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Cash) != 2 {
		t.Fatalf("rows got=%d", len(ds.Cash))
	}
	if !ds.Cash[0].Cash.Equal(decimal.NewFromInt(12500000)) || !ds.Cash[1].Cash.Equal(decimal.NewFromInt(-1000)) {
		t.Fatalf("cash got=%s / %s", ds.Cash[0].Cash, ds.Cash[1].Cash)
	}

	other := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	if _, err := Parse(KindCash, data, other, testOptions()); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("missing date column err got=%v", err)
	}
}

func TestParse_Debt(t *testing.T) {
	t.Parallel()

	data := xmlSpreadsheet([][]string{
		{"SỔ CHI TIẾT CÔNG NỢ"},
		{"STT", "Mã khách", "Tên khách", "Phát sinh nợ"},
		{"", "CH01KT", "Cửa hàng xăng dầu Số 1 (Nam Định)"},
		{"1", "KH001", "Công ty Minh Phát", "3410000"},
		{"2", "CH01KT", "Điều chỉnh", "500"},
		{"3", "", "Cửa hàng xăng dầu Số 1 - nội bộ", "700"},
		{"4", "", "Khách lẻ", "900"},
		{"5", "", "Đại lý Hoàng Long", "1.200.000"},
		{"", "Cộng", "", "99"},
		{"", "CH02KT", "Cửa hàng xăng dầu Số 2"},
		{"1", "KH003", "Công ty C", "abc"},
	})

	ds, err := Parse(KindDebt, data, time.Time{}, testOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Debt) != 3 {
		t.Fatalf("rows got=%d want=3: %+v", len(ds.Debt), ds.Debt)
	}

	first := ds.Debt[0]
	if first.StoreName != "CHXD Số 1" || first.StoreKey != StoreKey("CHXD Số 1") || first.StoreCode != "CH01KT" {
		t.Fatalf("mapped store got=%+v", first)
	}
	if !first.Debt.Equal(decimal.NewFromInt(3410000)) {
		t.Fatalf("strict amount got=%s", first.Debt)
	}
	if ds.Debt[1].CustomerCode != "" || !ds.Debt[1].Debt.Equal(decimal.NewFromInt(1200000)) {
		t.Fatalf("codeless row got=%+v", ds.Debt[1])
	}
	last := ds.Debt[2]
	if last.StoreName != "Cửa hàng xăng dầu Số 2" || !last.Debt.IsZero() {
		t.Fatalf("unmapped store row got=%+v", last)
	}
}

func TestParse_Unreadable(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindVolume, KindCash, KindDebt} {
		if _, err := Parse(kind, []byte("not xml at all"), time.Now(), testOptions()); !errors.Is(err, ErrUnreadable) {
			t.Fatalf("%s err got=%v", kind, err)
		}
		noHeader := xmlSpreadsheet([][]string{{"a", "b"}})
		if _, err := Parse(kind, noHeader, time.Now(), testOptions()); !errors.Is(err, ErrUnreadable) {
			t.Fatalf("%s no header err got=%v", kind, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	if k, err := ParseKind(" CongNo "); err != nil || k != KindDebt {
		t.Fatalf("got=%q err=%v", k, err)
	}
	if _, err := ParseKind("Other"); err == nil {
		t.Fatalf("expected error")
	}
}
