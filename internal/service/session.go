package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"smartpt/internal/domain"
	"smartpt/internal/ingest"
	"smartpt/internal/provider"
	"smartpt/internal/registry"
	"smartpt/internal/retrieval"
	"smartpt/internal/sample"
	"smartpt/internal/vectorstore"
)

var (
	// ErrNoDocuments is returned when a question is asked before any upload.
	ErrNoDocuments = errors.New("please upload a file first")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Options tunes retrieval and the sample workbook location.
type Options struct {
	DefaultK   int
	MaxK       int
	SamplePath string
}

// UploadResult describes the outcome of one successful or skipped upload.
type UploadResult struct {
	Filename   string
	Skipped    bool
	Characters int
	Warnings   []string
}

// Question is a free-text query restricted to Filter (nil = every loaded file).
type Question struct {
	Text   string
	K      int
	Filter domain.Filter
}

// Answer is the generated reply with its source labels.
type Answer struct {
	Text     string
	Sources  []string
	Fallback bool
	Warnings []string
}

// Session owns the document registry and the collaborators for one user.
// Operations are serialized: each upload or question completes before the next starts.
type Session struct {
	mu        sync.Mutex
	provider  *provider.Provider
	store     vectorstore.Storage
	ingestors *ingest.Registry
	docs      *registry.Registry
	assembler *retrieval.Assembler
	opts      Options
}

// NewSession creates a session with an empty registry.
func NewSession(p *provider.Provider, store vectorstore.Storage, ingestors *ingest.Registry, opts Options) *Session {
	if opts.MaxK <= 0 {
		opts.MaxK = 5
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = 3
	}
	if opts.DefaultK > opts.MaxK {
		opts.DefaultK = opts.MaxK
	}
	if opts.SamplePath == "" {
		opts.SamplePath = sample.DefaultPath
	}
	docs := registry.New()
	return &Session{
		provider:  p,
		store:     store,
		ingestors: ingestors,
		docs:      docs,
		assembler: retrieval.NewAssembler(p, store, docs),
		opts:      opts,
	}
}

// Start empties the document store before the first upload. A persistent
// store may still hold documents from an earlier run, and the registry of a
// new session is always empty.
func (s *Session) Start(ctx context.Context) error {
	return s.Clear(ctx)
}

// Upload ingests one file. A filename already in the session is skipped.
// Unsupported or unparseable files return *ingest.UnsupportedTypeError or
// *ingest.IngestError; embedding and store failures only add warnings.
func (s *Session) Upload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, filename, data)
}

func (s *Session) upload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	res := UploadResult{Filename: filename}
	if s.docs.Has(filename) {
		res.Skipped = true
		return res, nil
	}
	text, err := s.ingestors.Extract(ctx, filename, data)
	if err != nil {
		return res, err
	}
	res.Characters = len([]rune(text))

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("embedding unavailable for %s: %v", filename, err))
	}
	doc := domain.NewDocument(filename, text, vec)
	if err := s.store.Add(ctx, []string{text}, [][]float64{vec}, []map[string]string{doc.Metadata}); err != nil {
		log.Printf("store add failed for %s: %v", filename, err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("document store rejected %s: %v", filename, err))
	}
	s.docs.Add(doc)
	return res, nil
}

// UploadFiles reads and uploads each path. Every file is attempted; the
// returned error joins the per-file failures.
func (s *Session) UploadFiles(ctx context.Context, paths []string) ([]UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []UploadResult
	var errs []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", p, err))
			continue
		}
		res, err := s.upload(ctx, filepath.Base(p), data)
		if err != nil {
			log.Printf("upload failed for %s: %v", p, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// LoadSample uploads the sample inventory workbook. When the workbook is not
// on disk it is generated in memory.
func (s *Session) LoadSample(ctx context.Context) (UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.opts.SamplePath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("sample workbook %s not found, generating it", s.opts.SamplePath)
		data, err = sample.Bytes()
	}
	if err != nil {
		return UploadResult{Filename: sample.Filename}, fmt.Errorf("load sample: %w", err)
	}
	return s.upload(ctx, sample.Filename, data)
}

// Ask answers a question from the loaded documents.
func (s *Session) Ask(ctx context.Context, q Question) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.docs.Loaded() {
		return nil, ErrNoDocuments
	}
	question := strings.TrimSpace(q.Text)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	c, err := s.assembler.Assemble(ctx, question, q.Filter, s.clampK(q.K))
	if err != nil {
		return nil, err
	}
	text, err := s.provider.Answer(ctx, c.Text, question)
	warnings := c.Warnings
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("answer generation failed: %v", err))
	}
	return &Answer{Text: text, Sources: c.Sources, Fallback: c.Fallback, Warnings: warnings}, nil
}

func (s *Session) clampK(k int) int {
	if k == 0 {
		k = s.opts.DefaultK
	}
	if k < 1 {
		return 1
	}
	if k > s.opts.MaxK {
		return s.opts.MaxK
	}
	return k
}

// Clear empties the registry and the document store. The registry is always
// cleared; a store failure is returned.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.Clear()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear document store: %w", err)
	}
	return nil
}

// Documents returns the loaded documents in upload order.
func (s *Session) Documents() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs.List()
}

func (s *Session) DocumentsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs.Loaded()
}

// Limits returns the default and maximum k.
func (s *Session) Limits() (defaultK, maxK int) { return s.opts.DefaultK, s.opts.MaxK }

// Describe names the model and the embedder and answerer in use.
func (s *Session) Describe() string { return s.provider.Describe() }
