package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStorage_AddQueryClear(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	err = store.Add(ctx,
		[]string{"oil filter stock", "brake pad stock", "unembedded"},
		[][]float64{{0, 1}, {1, 0}, nil},
		[]map[string]string{{"filename": "a.xlsx"}, {"filename": "b.pdf"}, {"filename": "c.pdf"}},
	)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := store.Query(ctx, []float64{1, 0.1}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d matches, want 2", len(got))
	}
	if got[0].Text != "brake pad stock" || got[0].Filename() != "b.pdf" {
		t.Errorf("top match = %q (%s), want brake pad stock (b.pdf)", got[0].Text, got[0].Filename())
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err = store.Query(ctx, []float64{1, 0}, 3)
	if err != nil || len(got) != 0 {
		t.Errorf("Query after Clear = %v, %v; want no matches", got, err)
	}
}

func TestStorage_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	if err := store.Add(ctx, []string{"x"}, [][]float64{{1}}, []map[string]string{{"filename": "x.pdf"}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got, err := store.Query(ctx, []float64{1}, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Query = %v, %v; want 1 match", got, err)
	}
}
