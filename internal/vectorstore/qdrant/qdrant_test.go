package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeQdrant serves a single collection; size 0 means it does not exist.
type fakeQdrant struct {
	mu       sync.Mutex
	requests []string
	size     int
	points   []map[string]any
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if r.Header.Get("api-key") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodGet && !strings.Contains(r.URL.Path, "/points"):
		if f.size == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.size, "distance": "Cosine"}}},
		}})
		return
	case r.Method == http.MethodPut && !strings.Contains(r.URL.Path, "/points"):
		if f.size != 0 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.size = body.Vectors.Size
	case r.Method == http.MethodDelete:
		f.size = 0
		f.points = nil
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/search"):
		result := make([]map[string]any, 0, len(f.points))
		for _, p := range f.points {
			result = append(result, map[string]any{"score": 0.9, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"result": true})
}

func (f *fakeQdrant) snapshot() (requests []string, points int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...), len(f.points)
}

func TestStorage_AddQueryClear(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "inv"})
	defer s.Close()

	// nothing stored yet
	got, err := s.Query(ctx, []float64{1, 0}, 3)
	if err != nil || len(got) != 0 {
		t.Fatalf("Query before Add = %v, %v; want no matches", got, err)
	}

	err = s.Add(ctx,
		[]string{"BRK-001,Brake Pad", "no vector"},
		[][]float64{{1, 0}, nil},
		[]map[string]string{{"filename": "inv.xlsx"}, {"filename": "scan.pdf"}},
	)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, n := fake.snapshot(); n != 1 {
		t.Fatalf("upserted %d points, want 1 (empty vector skipped)", n)
	}

	got, err = s.Query(ctx, []float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "BRK-001,Brake Pad" || got[0].Filename() != "inv.xlsx" || got[0].Score != 0.9 {
		t.Errorf("Query = %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	want := []string{
		"GET /collections/inv",
		"GET /collections/inv",
		"PUT /collections/inv",
		"PUT /collections/inv/points",
		"POST /collections/inv/points/search",
		"DELETE /collections/inv",
	}
	requests, _ := fake.snapshot()
	if strings.Join(requests, "|") != strings.Join(want, "|") {
		t.Errorf("requests = %v, want %v", requests, want)
	}
}

func TestStorage_ReusesExistingCollection(t *testing.T) {
	fake := &fakeQdrant{
		size: 2,
		points: []map[string]any{{"payload": map[string]any{
			"text":     "BRK-001,Brake Pad",
			"metadata": map[string]any{"filename": "inv.xlsx"},
		}}},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	// a new process sees the collection an earlier run created
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "inv"})
	got, err := s.Query(ctx, []float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Filename() != "inv.xlsx" {
		t.Fatalf("Query = %+v, want the stored point", got)
	}

	fresh := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "inv"})
	err = fresh.Add(ctx, []string{"ENG-002,Oil Filter"}, [][]float64{{0, 1}},
		[]map[string]string{{"filename": "more.xlsx"}})
	if err != nil {
		t.Fatalf("Add to existing collection failed: %v", err)
	}
	if _, n := fake.snapshot(); n != 2 {
		t.Errorf("collection holds %d points, want 2", n)
	}

	restarted := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "inv"})
	if err := restarted.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	want := []string{
		"GET /collections/inv",
		"POST /collections/inv/points/search",
		"GET /collections/inv",
		"PUT /collections/inv/points",
		"GET /collections/inv",
		"DELETE /collections/inv",
	}
	requests, n := fake.snapshot()
	if strings.Join(requests, "|") != strings.Join(want, "|") {
		t.Errorf("requests = %v, want %v", requests, want)
	}
	if n != 0 {
		t.Errorf("Clear left %d points", n)
	}
}

func TestStorage_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "inv"})
	err := s.Add(context.Background(), []string{"x"}, [][]float64{{1}}, []map[string]string{{}})
	if err == nil {
		t.Error("Add against failing server succeeded, want error")
	}
}

func TestStorage_EmptyQuery(t *testing.T) {
	s := NewStorage(Config{URL: "http://127.0.0.1:1"})
	if _, err := s.Query(context.Background(), nil, 3); err == nil {
		t.Error("Query with empty vector succeeded, want error")
	}
}
