// Package registry records the documents ingested during one session.
package registry

import "smartpt/internal/domain"

// PreviewLength is the number of characters shown when listing documents.
const PreviewLength = 500

// Registry is an ordered, append-only list of documents keyed by filename.
// It is owned by a single session and is not safe for concurrent mutation.
type Registry struct {
	docs   []domain.Document
	index  map[string]int
	loaded bool
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends doc unless its filename is already present. It reports whether
// the document was added.
func (r *Registry) Add(doc domain.Document) bool {
	if _, ok := r.index[doc.Filename]; ok {
		return false
	}
	r.index[doc.Filename] = len(r.docs)
	r.docs = append(r.docs, doc)
	r.loaded = true
	return true
}

// Clear empties the registry and resets the loaded flag.
func (r *Registry) Clear() {
	r.docs = nil
	r.index = make(map[string]int)
	r.loaded = false
}

// List returns the documents in insertion order.
func (r *Registry) List() []domain.Document {
	out := make([]domain.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

func (r *Registry) Has(filename string) bool {
	_, ok := r.index[filename]
	return ok
}

// Filenames returns every known filename in insertion order.
func (r *Registry) Filenames() []string {
	out := make([]string, len(r.docs))
	for i, d := range r.docs {
		out[i] = d.Filename
	}
	return out
}

func (r *Registry) Len() int { return len(r.docs) }

// Loaded reports whether at least one document was added since the last Clear.
func (r *Registry) Loaded() bool { return r.loaded }
