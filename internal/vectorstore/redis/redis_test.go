package redis

import (
	"context"
	"testing"
	"time"
)

func TestParseSearchResult(t *testing.T) {
	reply := []interface{}{
		int64(2),
		"smartpt:doc:1", []interface{}{
			"content", "BRK-001,Brake Pad,Pune,120",
			"filename", "inventory.xlsx",
			"metadata", `{"filename":"inventory.xlsx","kind":"spreadsheet"}`,
			"score", "0.25",
		},
		"smartpt:doc:2", []interface{}{
			"content", "scanned delivery note",
			"filename", "note.pdf",
			"score", "0.5",
		},
	}
	got, err := parseSearchResult(reply)
	if err != nil {
		t.Fatalf("parseSearchResult failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Text != "BRK-001,Brake Pad,Pune,120" || got[0].Filename() != "inventory.xlsx" {
		t.Errorf("first match = %+v", got[0])
	}
	if got[0].Metadata["kind"] != "spreadsheet" {
		t.Errorf("metadata not decoded: %v", got[0].Metadata)
	}
	if got[0].Score != 0.75 || got[1].Score != 0.5 {
		t.Errorf("scores = %v, %v; want 0.75, 0.5", got[0].Score, got[1].Score)
	}
	if got[1].Filename() != "note.pdf" {
		t.Errorf("second match filename = %q, want note.pdf", got[1].Filename())
	}
}

func TestParseSearchResult_Unexpected(t *testing.T) {
	if _, err := parseSearchResult("OK"); err == nil {
		t.Error("parseSearchResult(string) succeeded, want error")
	}
	got, err := parseSearchResult([]interface{}{int64(0)})
	if err != nil || len(got) != 0 {
		t.Errorf("parseSearchResult(empty) = %v, %v; want no matches", got, err)
	}
}

func TestFindInt(t *testing.T) {
	info := []interface{}{
		"index_name", "smartpt-docs",
		"attributes", []interface{}{
			[]interface{}{"identifier", "vector", "type", "VECTOR", "dim", int64(512)},
		},
	}
	if got := findInt(info, "dim"); got != 512 {
		t.Errorf("findInt = %d, want 512", got)
	}
	if got := findInt(info, "missing"); got != 0 {
		t.Errorf("findInt(missing) = %d, want 0", got)
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := New(ctx, Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond}); err == nil {
		t.Error("New against an unreachable server succeeded, want error")
	}
}
