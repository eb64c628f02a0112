package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartpt/internal/domain"
	"smartpt/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on the first
// non-empty vector, which fixes its dimension.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.Mutex
	dimension int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "smartpt"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// ensureCollection adopts the collection left by an earlier run, or creates
// it with the given dimension.
func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		return nil
	}
	existing, err := s.collectionDimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.dimension = existing
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant answers 409 Conflict when the collection already exists
	if err := s.doJSON(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

// loadDimension returns the collection dimension, reading it from the server
// when this process has not created or seen the collection yet. 0 means the
// collection does not exist.
func (s *Storage) loadDimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		return s.dimension, nil
	}
	dim, err := s.collectionDimension(ctx)
	if err != nil {
		return 0, err
	}
	s.dimension = dim
	return dim, nil
}

// collectionDimension reads result.config.params.vectors.size of the
// collection. A missing collection yields 0 and no error.
func (s *Storage) collectionDimension(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodGet, s.collectionURL(), nil, &resp)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// Add upserts a batch of points. Points without a usable vector are skipped.
func (s *Storage) Add(ctx context.Context, texts []string, vectors [][]float64, metadatas []map[string]string) error {
	if err := vectorstore.CheckBatch(texts, vectors, metadatas); err != nil {
		return err
	}
	for _, v := range vectors {
		if len(v) > 0 {
			if err := s.ensureCollection(ctx, len(v)); err != nil {
				return err
			}
			break
		}
	}
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	points := make([]map[string]any, 0, len(texts))
	for i := range texts {
		if len(vectors[i]) == 0 || len(vectors[i]) != dim {
			log.Printf("qdrant: skipping %q: vector has %d dimensions, collection has %d",
				metadatas[i][domain.MetaFilename], len(vectors[i]), dim)
			continue
		}
		points = append(points, map[string]any{
			"id":     uuid.NewString(),
			"vector": vectors[i],
			"payload": map[string]any{
				"text":     texts[i],
				"metadata": metadatas[i],
			},
		})
	}
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Storage) Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}
	dim, err := s.loadDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Text     string            `json:"text"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		meta := r.Payload.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		results = append(results, domain.Match{Text: r.Payload.Text, Metadata: meta, Score: r.Score})
	}
	return results, nil
}

// Clear drops the collection, including one left by an earlier run; it is
// recreated on the next Add.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		dim, err := s.collectionDimension(ctx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return nil
		}
	}
	if err := s.doJSON(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil {
		return err
	}
	s.dimension = 0
	return nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, status: resp.Status, code: resp.StatusCode}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type statusError struct {
	method, url, status string
	code                int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}
