// Package sample builds the demo inventory workbook shipped with the tool.
package sample

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Filename is the name the sample workbook is registered under.
const Filename = "sample_inventory.xlsx"

// DefaultPath is where the sample workbook is looked up, relative to the working directory.
var DefaultPath = filepath.Join("data", Filename)

// Columns is the sample header row.
var Columns = []string{"Part Number", "Description", "Location", "Quantity", "Last Updated"}

// Item is one inventory row.
type Item struct {
	PartNumber  string
	Description string
	Location    string
	Quantity    int
	LastUpdated string
}

// Inventory is the content of the sample workbook.
var Inventory = []Item{
	{"BRK-001", "Brake Pad", "Pune", 120, "2024-07-01"},
	{"FLT-002", "Oil Filter", "Mumbai", 80, "2024-07-02"},
	{"ENG-003", "Spark Plug", "Delhi", 200, "2024-07-01"},
	{"BRK-004", "Brake Disc", "Pune", 50, "2024-07-03"},
	{"FLT-005", "Air Filter", "Chennai", 60, "2024-07-02"},
}

// Workbook builds the sample inventory as a single-sheet workbook.
func Workbook() (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Sheet1"
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, it := range Inventory {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{it.PartNumber, it.Description, it.Location, it.Quantity, it.LastUpdated}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Bytes returns the sample workbook serialized as .xlsx.
func Bytes() ([]byte, error) {
	f, err := Workbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write saves the sample workbook to path, creating parent directories.
func Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Bytes()
	if err != nil {
		return fmt.Errorf("build sample workbook: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
