package sample

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", Filename)
	if err := Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != len(Inventory)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(Inventory)+1)
	}
	for i, c := range Columns {
		if rows[0][i] != c {
			t.Errorf("header %d = %q, want %q", i, rows[0][i], c)
		}
	}
	if rows[1][0] != "BRK-001" || rows[1][3] != "120" || rows[1][4] != "2024-07-01" {
		t.Errorf("first item row = %v", rows[1])
	}
}
