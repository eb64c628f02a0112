package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"smartpt/internal/domain"
	"smartpt/internal/vectorstore"
)

const docsSchema = `
CREATE TABLE IF NOT EXISTS docs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    meta TEXT NOT NULL,
    embedding BLOB
);
`

// Storage keeps documents in a SQLite docs table and ranks them by cosine
// similarity computed over the decoded embeddings.
type Storage struct {
	db *sql.DB
}

// Open opens (or creates) the database at path; ":memory:" gives a private
// in-process database.
func Open(path string) (*Storage, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(docsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Add inserts a batch in a single transaction.
func (s *Storage) Add(ctx context.Context, texts []string, vectors [][]float64, metadatas []map[string]string) error {
	if err := vectorstore.CheckBatch(texts, vectors, metadatas); err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO docs(content, meta, embedding) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range texts {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("sqlite: encode metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, texts[i], string(meta), vectorstore.EncodeFloat32(vectors[i])); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query scans the table and returns the k most similar documents.
func (s *Storage) Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error) {
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT content, meta, embedding FROM docs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var (
			content, meta string
			blob          []byte
		)
		if err := rows.Scan(&content, &meta, &blob); err != nil {
			return nil, err
		}
		emb, err := vectorstore.DecodeFloat32(blob)
		if err != nil {
			return nil, err
		}
		score, ok := vectorstore.Cosine(emb, vector)
		if !ok {
			continue
		}
		m := domain.Match{Text: content, Score: score}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite: decode metadata: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Clear deletes every document.
func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM docs`)
	return err
}

// Close closes the underlying database.
func (s *Storage) Close() error { return s.db.Close() }
