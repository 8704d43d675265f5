package grid

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const sampleXML = `<?xml version="1.0"?>
<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet"
 xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet">
 <Worksheet ss:Name="Sheet1">
  <Table>
   <Row><Cell><Data ss:Type="String">Mã khách</Data></Cell><Cell><Data ss:Type="String">Tên khách</Data></Cell></Row>
   <Row><Cell ss:Index="2"><Data ss:Type="Number">12</Data></Cell></Row>
   <Row><Cell ss:MergeAcross="1"><Data ss:Type="String">A</Data></Cell><Cell><Data ss:Type="String">B</Data></Cell></Row>
   <Row/>
  </Table>
 </Worksheet>
</Workbook>`

func TestFromXMLSpreadsheet(t *testing.T) {
	t.Parallel()

	g, err := FromXMLSpreadsheet([]byte(sampleXML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g) != 4 {
		t.Fatalf("rows got=%d want=4", len(g))
	}
	if g[0].Text(0) != "Mã khách" || g[0].Text(1) != "Tên khách" {
		t.Fatalf("header got=%v", g[0])
	}
	if g[1].Text(0) != "" || g[1].Number(1).IntPart() != 12 {
		t.Fatalf("indexed row got=%v", g[1])
	}
	if g[2].Text(0) != "A" || g[2].Text(2) != "B" {
		t.Fatalf("merged row got=%v", g[2])
	}
	if !g[3].IsBlank() {
		t.Fatalf("empty row should be blank")
	}
}

func TestFromXMLSpreadsheet_Windows1252Fallback(t *testing.T) {
	t.Parallel()

	src := `<?xml version="1.0" encoding="windows-1252"?><Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet"><Worksheet><Table><Row><Cell><Data>Café</Data></Cell></Row></Table></Worksheet></Workbook>`
	encoded, err := charmap.Windows1252.NewEncoder().String(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	g, err := FromXMLSpreadsheet([]byte(encoded))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := g[0].Text(0); got != "Café" {
		t.Fatalf("got=%q want=%q", got, "Café")
	}
}

func TestFromXMLSpreadsheet_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := FromXMLSpreadsheet([]byte("<Workbook><Row>")); err == nil {
		t.Fatalf("expected error for truncated xml")
	}
	if _, err := FromXMLSpreadsheet([]byte("<Workbook></Workbook>")); err == nil {
		t.Fatalf("expected error when no Table is present")
	}
}

func TestDecode_XLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	_ = f.SetCellValue("Sheet1", "A1", "IV")
	_ = f.SetCellValue("Sheet1", "B2", "Xăng RON95 Mức 3")
	_ = f.SetCellValue("Sheet1", "G2", "1.500,5")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	g, err := Decode("report.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Row(0).Text(0) != "IV" {
		t.Fatalf("A1 got=%q", g.Row(0).Text(0))
	}
	if got := g.Row(1).Number(6).String(); got != "1500.5" {
		t.Fatalf("G2 got=%s", got)
	}
	if g.Row(5) != nil {
		t.Fatalf("out of range row should be nil")
	}
}

func TestRowAccessors(t *testing.T) {
	t.Parallel()

	r := Row{" a ", "", "3", ""}
	if r.Text(0) != "a" || r.Text(10) != "" || r.Text(-1) != "" {
		t.Fatalf("Text accessor mismatch")
	}
	if r.LastNonEmpty() != 2 {
		t.Fatalf("LastNonEmpty got=%d", r.LastNonEmpty())
	}
	if !r.Number(99).IsZero() {
		t.Fatalf("absent column should coerce to zero")
	}
}
