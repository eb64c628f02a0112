package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"smartpt/internal/domain"
	"smartpt/internal/vectorstore"
)

const (
	// Field names in the Redis hash
	fieldContent  = "content"
	fieldVector   = "vector"
	fieldFilename = "filename"
	fieldMetadata = "metadata"
	fieldScore    = "score"

	defaultEFConstruction = 200
	defaultM              = 16
)

// Config holds Redis connection and index configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	KeyPrefix string
	Timeout   time.Duration
}

// Storage stores documents as Redis hashes indexed by a RediSearch HNSW
// COSINE vector index. The index is created on the first non-empty vector,
// which fixes its dimension.
type Storage struct {
	client    *goredis.Client
	indexName string
	keyPrefix string

	mu        sync.Mutex
	dimension int
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "smartpt-docs"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "smartpt:doc:"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
		// FT.SEARCH replies are parsed in their RESP2 array shape
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s := &Storage{client: client, indexName: cfg.IndexName, keyPrefix: cfg.KeyPrefix}
	if dim, err := s.indexDimension(ctx); err == nil {
		s.dimension = dim
	}
	return s, nil
}

// indexDimension reads the vector dimension of an existing index.
func (s *Storage) indexDimension(ctx context.Context) (int, error) {
	res, err := s.client.Do(ctx, "FT.INFO", s.indexName).Result()
	if err != nil {
		return 0, err
	}
	dim := findInt(res, "dim")
	if dim <= 0 {
		return 0, errors.New("index has no vector dimension")
	}
	return dim, nil
}

// ensureIndex creates the HNSW vector index if it doesn't exist
func (s *Storage) ensureIndex(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		return nil
	}
	// FT.CREATE smartpt-docs ON HASH PREFIX 1 "smartpt:doc:"
	//   SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM <d> DISTANCE_METRIC COSINE EF_CONSTRUCTION 200 M 16
	//          content TEXT filename TAG
	_, err := s.client.Do(ctx, "FT.CREATE", s.indexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldContent, "TEXT",
		fieldFilename, "TAG",
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	s.dimension = dim
	return nil
}

// Add writes one hash per document in a pipeline. Vectors that are empty or do
// not match the index dimension are left out of the hash, so the document is
// kept but never returned by KNN.
func (s *Storage) Add(ctx context.Context, texts []string, vectors [][]float64, metadatas []map[string]string) error {
	if err := vectorstore.CheckBatch(texts, vectors, metadatas); err != nil {
		return err
	}
	for _, v := range vectors {
		if len(v) > 0 {
			if err := s.ensureIndex(ctx, len(v)); err != nil {
				return err
			}
			break
		}
	}
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	pipe := s.client.Pipeline()
	for i := range texts {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		fields := []interface{}{
			fieldContent, texts[i],
			fieldFilename, metadatas[i][domain.MetaFilename],
			fieldMetadata, string(meta),
		}
		if len(vectors[i]) > 0 && len(vectors[i]) == dim {
			fields = append(fields, fieldVector, vectorstore.EncodeFloat32(vectors[i]))
		}
		pipe.HSet(ctx, s.keyPrefix+uuid.NewString(), fields...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// Query runs a KNN search and converts cosine distances into similarities.
func (s *Storage) Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	if dim == 0 {
		// nothing indexed yet
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), dim)
	}
	// FT.SEARCH smartpt-docs "*=>[KNN 3 @vector $query_vector AS score]"
	//   PARAMS 2 query_vector "<bytes>" SORTBY score RETURN 4 content filename metadata score
	//   LIMIT 0 3 DIALECT 2
	res, err := s.client.Do(ctx, "FT.SEARCH", s.indexName,
		fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", k, fieldVector, fieldScore),
		"PARAMS", "2", "query_vector", vectorstore.EncodeFloat32(vector),
		"SORTBY", fieldScore,
		"RETURN", "4", fieldContent, fieldFilename, fieldMetadata, fieldScore,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return parseSearchResult(res)
}

// parseSearchResult decodes an FT.SEARCH RESP2 reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchResult(res interface{}) ([]domain.Match, error) {
	values, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search reply %T", res)
	}
	var matches []domain.Match
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}
		m := domain.Match{Metadata: map[string]string{}}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val, _ := fields[j+1].(string)
			switch name {
			case fieldContent:
				m.Text = val
			case fieldFilename:
				if _, set := m.Metadata[domain.MetaFilename]; !set {
					m.Metadata[domain.MetaFilename] = val
				}
			case fieldMetadata:
				var meta map[string]string
				if err := json.Unmarshal([]byte(val), &meta); err == nil {
					for k, v := range meta {
						m.Metadata[k] = v
					}
				}
			case fieldScore:
				if d, err := strconv.ParseFloat(val, 64); err == nil {
					m.Score = 1 - d
				}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Clear drops the index together with its documents, and removes any
// documents stored before an index existed.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 {
		if err := s.client.Do(ctx, "FT.DROPINDEX", s.indexName, "DD").Err(); err != nil {
			return fmt.Errorf("failed to drop index: %w", err)
		}
		s.dimension = 0
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Close closes the Redis client.
func (s *Storage) Close() error { return s.client.Close() }

// findInt searches an FT.INFO reply for a key followed by an integer value.
func findInt(res interface{}, key string) int {
	switch v := res.(type) {
	case []interface{}:
		for i := 0; i < len(v); i++ {
			if name, ok := v[i].(string); ok && name == key && i+1 < len(v) {
				if n, ok := toInt(v[i+1]); ok {
					return n
				}
			}
			if n := findInt(v[i], key); n > 0 {
				return n
			}
		}
	case map[interface{}]interface{}:
		for k, val := range v {
			if name, ok := k.(string); ok && name == key {
				if n, ok := toInt(val); ok {
					return n
				}
			}
			if n := findInt(val, key); n > 0 {
				return n
			}
		}
	}
	return 0
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
