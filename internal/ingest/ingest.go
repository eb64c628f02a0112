package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies the family of an uploaded file.
type Kind string

const (
	KindSpreadsheet Kind = "spreadsheet"
	KindPDF         Kind = "pdf"
	KindUnknown     Kind = "unknown"
)

// KindFromFilename maps a filename to a Kind by its extension, case-insensitively.
func KindFromFilename(name string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "xlsx", "xls":
		return KindSpreadsheet
	case "pdf":
		return KindPDF
	default:
		return KindUnknown
	}
}

// Ingestor turns raw file bytes into plain text.
type Ingestor interface {
	Kind() Kind
	Extract(ctx context.Context, data []byte) (string, error)
}

// UnsupportedTypeError is returned for files no ingestor accepts.
type UnsupportedTypeError struct {
	Filename string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Filename)
}

// IngestError wraps a parse failure for a single file.
type IngestError struct {
	Filename string
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("failed to ingest %s: %v", e.Filename, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Registry holds one ingestor per kind.
type Registry struct {
	ingestors map[Kind]Ingestor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ingestors: make(map[Kind]Ingestor)}
}

// DefaultRegistry returns a registry with the spreadsheet and PDF ingestors.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewSpreadsheetIngestor())
	reg.Register(NewPDFIngestor())
	return reg
}

// Register adds or replaces the ingestor for its kind.
func (r *Registry) Register(in Ingestor) {
	r.ingestors[in.Kind()] = in
}

// ForFilename returns the ingestor matching the filename extension.
func (r *Registry) ForFilename(name string) (Ingestor, error) {
	in, ok := r.ingestors[KindFromFilename(name)]
	if !ok {
		return nil, &UnsupportedTypeError{Filename: name}
	}
	return in, nil
}

// Extract converts the named file into text.
func (r *Registry) Extract(ctx context.Context, name string, data []byte) (string, error) {
	in, err := r.ForFilename(name)
	if err != nil {
		return "", err
	}
	text, err := in.Extract(ctx, data)
	if err != nil {
		return "", &IngestError{Filename: name, Err: err}
	}
	return text, nil
}
