// Package retrieval builds the answer context for a question from the document
// store, falling back to the session registry when the store yields nothing usable.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"smartpt/internal/domain"
)

// ErrNoRelevantDocuments is returned when neither the store nor the registry
// supplies any text allowed by the filter.
var ErrNoRelevantDocuments = errors.New("no relevant documents found")

const fragmentSeparator = "\n\n"

// Embedder turns the question into a query vector. An empty vector means the
// embedding is unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Searcher returns ranked matches for a query vector.
type Searcher interface {
	Query(ctx context.Context, vector []float64, k int) ([]domain.Match, error)
}

// Documents exposes the session registry to the assembler.
type Documents interface {
	List() []domain.Document
	Filenames() []string
}

// Context is the text handed to the answer step together with its sources.
type Context struct {
	Text     string
	Sources  []string
	Fallback bool
	Warnings []string
}

func (c *Context) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("retrieval: %s", msg)
	c.Warnings = append(c.Warnings, msg)
}

// Assembler combines the embedder, the store and the registry.
type Assembler struct {
	embedder Embedder
	store    Searcher
	docs     Documents
}

func NewAssembler(embedder Embedder, store Searcher, docs Documents) *Assembler {
	return &Assembler{embedder: embedder, store: store, docs: docs}
}

// Assemble retrieves up to k matches for query and keeps those whose filename
// the filter allows. A nil filter allows every filename in the registry.
// When no match survives, registry documents allowed by the filter are used
// as-is. The returned Context carries warnings even when err is non-nil.
func (a *Assembler) Assemble(ctx context.Context, query string, filter domain.Filter, k int) (Context, error) {
	var out Context
	if filter == nil {
		filter = domain.Filter(a.docs.Filenames())
	}

	matches := a.search(ctx, &out, query, k)
	var fragments []string
	for i, m := range matches {
		name := m.Filename()
		if !filter.Allows(name) {
			continue
		}
		fragments = append(fragments, fmt.Sprintf("[Source: %s]\n%s", name, m.Text))
		out.Sources = append(out.Sources, fmt.Sprintf("Source %d: %s", i+1, name))
	}
	if len(fragments) > 0 {
		out.Text = strings.Join(fragments, fragmentSeparator)
		return out, nil
	}

	var texts []string
	for i, d := range a.docs.List() {
		if !filter.Allows(d.Filename) {
			continue
		}
		texts = append(texts, d.Text)
		out.Sources = append(out.Sources, fmt.Sprintf("Source %d: %s (fallback)", i+1, d.Filename))
	}
	if len(texts) == 0 {
		return out, ErrNoRelevantDocuments
	}
	out.Text = strings.Join(texts, fragmentSeparator)
	out.Fallback = true
	return out, nil
}

// search embeds the query and asks the store for the top k matches. Failures
// become warnings and an empty result.
func (a *Assembler) search(ctx context.Context, out *Context, query string, k int) []domain.Match {
	if k < 1 {
		k = 1
	}
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil || len(vec) == 0 {
		if err == nil {
			err = errors.New("empty vector")
		}
		out.warn("question could not be embedded (%v); using loaded documents", err)
		return nil
	}
	matches, err := a.store.Query(ctx, vec, k)
	if err != nil {
		out.warn("document store query failed (%v); using loaded documents", err)
		return nil
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
