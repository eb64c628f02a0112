package memory

import (
	"context"
	"sort"
	"sync"

	"smartpt/internal/domain"
	"smartpt/internal/vectorstore"
)

type entry struct {
	text     string
	vector   []float64
	metadata map[string]string
}

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Entries whose vector is empty or of a different dimension are kept but never match.
type Storage struct {
	mu      sync.RWMutex
	entries []entry
}

// NewStorage creates an empty store.
func NewStorage() *Storage { return &Storage{} }

// Add appends a batch of documents.
func (s *Storage) Add(ctx context.Context, texts []string, vectors [][]float64, metadatas []map[string]string) error {
	if err := vectorstore.CheckBatch(texts, vectors, metadatas); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range texts {
		s.entries = append(s.entries, entry{
			text:     texts[i],
			vector:   append([]float64(nil), vectors[i]...),
			metadata: vectorstore.CopyMetadata(metadatas[i]),
		})
	}
	return nil
}

// Query ranks entries by cosine similarity; ties keep insertion order.
func (s *Storage) Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]domain.Match, 0, len(s.entries))
	for _, e := range s.entries {
		score, ok := vectorstore.Cosine(e.vector, vector)
		if !ok {
			continue
		}
		matches = append(matches, domain.Match{
			Text:     e.text,
			Metadata: vectorstore.CopyMetadata(e.metadata),
			Score:    score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Len returns the number of stored entries, matchable or not.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Storage) Close() error { return nil }
