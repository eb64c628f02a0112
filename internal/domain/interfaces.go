package domain

import "context"

// MetaFilename is the metadata key every stored document carries.
const MetaFilename = "filename"

// Document represents a single uploaded file after text extraction.
type Document struct {
	Filename string
	Text     string
	Vector   []float64
	Metadata map[string]string
}

// NewDocument builds a document whose metadata carries its filename.
func NewDocument(filename, text string, vector []float64) Document {
	return Document{
		Filename: filename,
		Text:     text,
		Vector:   vector,
		Metadata: map[string]string{MetaFilename: filename},
	}
}

// Preview returns the first n characters of the text, marked with "..." when cut.
func (d Document) Preview(n int) string {
	runes := []rune(d.Text)
	if n <= 0 || len(runes) <= n {
		return d.Text
	}
	return string(runes[:n]) + "..."
}

// Match is a stored text returned by a similarity query, best first.
type Match struct {
	Text     string
	Metadata map[string]string
	Score    float64
}

// Filename returns the filename recorded in the match metadata, or "Unknown".
func (m Match) Filename() string {
	if f, ok := m.Metadata[MetaFilename]; ok && f != "" {
		return f
	}
	return "Unknown"
}

// Filter restricts retrieval to a set of filenames.
// A nil Filter means "every known filename"; a non-nil empty Filter allows nothing.
type Filter []string

// Allows reports whether filename is a member of the filter.
func (f Filter) Allows(filename string) bool {
	for _, name := range f {
		if name == filename {
			return true
		}
	}
	return false
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Answerer produces an answer to a question given retrieved context.
type Answerer interface {
	Name() string
	Answer(ctx context.Context, contextText, question string) (string, error)
}
