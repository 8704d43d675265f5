package grid

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// spreadsheetNamespace is the default namespace the ledger generator declares on every export.
const spreadsheetNamespace = `xmlns="urn:schemas-microsoft-com:office:spreadsheet"`

// ErrUnsupportedFormat is returned when bytes are neither XLSX nor XML Spreadsheet.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// DecodeFile decodes a report or ledger file from disk, picking the decoder by extension.
func DecodeFile(path string) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode picks a decoder from the file name and, failing that, from the content.
func Decode(name string, data []byte) (Grid, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FromXLSX(bytes.NewReader(data))
	case ".xml":
		return FromXMLSpreadsheet(data)
	}
	if bytes.HasPrefix(data, []byte("PK")) {
		return FromXLSX(bytes.NewReader(data))
	}
	if bytes.Contains(data[:min(len(data), 512)], []byte("<?xml")) || bytes.Contains(data, []byte("<Workbook")) {
		return FromXMLSpreadsheet(data)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
}

// FromXLSX reads the first worksheet of an XLSX workbook. Numeric cells come back unformatted.
func FromXLSX(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return FromRows(rows), nil
}

// DecodeText returns the bytes as UTF-8 text, reinterpreting them as Windows-1252 when they are not valid UTF-8.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode windows-1252: %w", err)
	}
	return string(out), nil
}

// FromXMLSpreadsheet flattens every Worksheet/Table/Row/Cell/Data of an XML Spreadsheet 2003 document.
// ss:Index and ss:MergeAcross are honored so sparse rows keep their column positions.
func FromXMLSpreadsheet(data []byte) (Grid, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}
	text = strings.Replace(text, spreadsheetNamespace, "", 1)

	dec := xml.NewDecoder(strings.NewReader(text))
	// the text is already UTF-8 whatever the prolog declares
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var (
		g         Grid
		row       Row
		inRow     bool
		inData    int
		col       int
		cellText  strings.Builder
		cellCol   int
		cellSpan  int
		inCell    bool
		tableSeen bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml spreadsheet: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case inData > 0:
				inData++
			case el.Name.Local == "Table":
				tableSeen = true
			case el.Name.Local == "Row":
				inRow = true
				row = Row{}
				col = 0
			case el.Name.Local == "Cell" && inRow:
				inCell = true
				cellText.Reset()
				cellSpan = 0
				if idx, ok := intAttr(el, "Index"); ok && idx > 0 {
					col = idx - 1
				}
				cellCol = col
				if span, ok := intAttr(el, "MergeAcross"); ok && span > 0 {
					cellSpan = span
				}
			case el.Name.Local == "Data" && inCell:
				inData = 1
			}
		case xml.CharData:
			if inData > 0 {
				cellText.Write(el)
			}
		case xml.EndElement:
			switch {
			case inData > 1:
				inData--
			case inData == 1 && el.Name.Local == "Data":
				inData = 0
			case el.Name.Local == "Cell" && inCell:
				for len(row) <= cellCol {
					row = append(row, "")
				}
				row[cellCol] = cellText.String()
				col = cellCol + 1 + cellSpan
				inCell = false
			case el.Name.Local == "Row" && inRow:
				g = append(g, row)
				inRow = false
			}
		}
	}

	if !tableSeen {
		return nil, fmt.Errorf("parse xml spreadsheet: no Table element")
	}
	return g, nil
}

func intAttr(el xml.StartElement, local string) (int, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			n, err := strconv.Atoi(strings.TrimSpace(a.Value))
			return n, err == nil
		}
	}
	return 0, false
}
