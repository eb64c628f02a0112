// Package vectorstore defines the document store contract and shared helpers
// for its backends (memory, sqlite, redis, qdrant).
package vectorstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"smartpt/internal/domain"
)

// Storage persists texts with their vectors and metadata and supports
// similarity search.
type Storage interface {
	// Add stores a batch; the three slices must have equal length.
	Add(ctx context.Context, texts []string, vectors [][]float64, metadatas []map[string]string) error
	// Query returns at most k matches ordered by descending similarity.
	Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error)
	// Clear removes every stored document.
	Clear(ctx context.Context) error
	Close() error
}

// ErrEmptyQuery is returned when querying with an empty vector.
var ErrEmptyQuery = errors.New("query vector is empty")

// CheckBatch validates the shape of an Add call.
func CheckBatch(texts []string, vectors [][]float64, metadatas []map[string]string) error {
	if len(texts) != len(vectors) || len(texts) != len(metadatas) {
		return fmt.Errorf("batch length mismatch: %d texts, %d vectors, %d metadatas", len(texts), len(vectors), len(metadatas))
	}
	return nil
}

// Cosine computes the cosine similarity of two vectors. ok is false when the
// dimensions differ or either vector has zero magnitude.
func Cosine(a, b []float64) (sim float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na2, nb2 float64
	for i := range a {
		dot += a[i] * b[i]
		na2 += a[i] * a[i]
		nb2 += b[i] * b[i]
	}
	if na2 == 0 || nb2 == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), true
}

// CopyMetadata returns a shallow copy so stored metadata cannot be mutated by callers.
func CopyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EncodeFloat32 encodes a vector as little-endian float32 values without a
// length prefix, the layout SQLite blobs and RediSearch FLOAT32 fields expect.
// Empty vectors encode to nil.
func EncodeFloat32(vec []float64) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
	return b
}

// DecodeFloat32 reverses EncodeFloat32.
func DecodeFloat32(b []byte) ([]float64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid float32 blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float64, len(b)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return vec, nil
}
