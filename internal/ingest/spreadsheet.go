package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Sheet is a named grid of cell values, first row being the header.
type Sheet struct {
	Name string
	Rows [][]string
}

// SpreadsheetIngestor renders every sheet of a workbook as CSV text.
type SpreadsheetIngestor struct {
	charset string
}

// NewSpreadsheetIngestor creates an ingestor for .xlsx and .xls workbooks.
func NewSpreadsheetIngestor() *SpreadsheetIngestor {
	return &SpreadsheetIngestor{charset: "utf-8"}
}

// Kind returns the file kind this ingestor handles.
func (s *SpreadsheetIngestor) Kind() Kind { return KindSpreadsheet }

// Extract parses the workbook and joins the CSV rendering of each sheet with a newline.
func (s *SpreadsheetIngestor) Extract(ctx context.Context, data []byte) (string, error) {
	sheets, err := s.ReadSheets(data)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(sheets))
	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := RenderCSV(sh.Rows)
		if err != nil {
			return "", fmt.Errorf("render sheet %q: %w", sh.Name, err)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// ReadSheets returns the sheets of an OOXML or legacy BIFF workbook in workbook order.
func (s *SpreadsheetIngestor) ReadSheets(data []byte) ([]Sheet, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		return readXLS(data, s.charset)
	case len(data) == 0:
		return nil, errors.New("empty workbook")
	default:
		return nil, errors.New("not a spreadsheet workbook")
	}
}

func readXLSX(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

func readXLS(data []byte, charset string) (sheets []Sheet, err error) {
	// the BIFF reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			sheets = nil
			err = fmt.Errorf("open xls: %v", r)
		}
	}()
	wb, err := xls.OpenReader(bytes.NewReader(data), charset)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			var cells []string
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: rows})
	}
	return sheets, nil
}

// RenderCSV renders a grid as comma-separated text: a header line followed by one
// line per non-blank record. Short records are padded to the header width; empty
// header cells and cells past the header are given "Unnamed: <i>" columns.
func RenderCSV(rows [][]string) (string, error) {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return "", nil
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	header := make([]string, width)
	copy(header, rows[0])
	for i := range header {
		if header[i] == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range rows[1:] {
		record := make([]string, width)
		copy(record, r)
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func dropBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		blank := true
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}
