// Package provider pairs an embedder with an answerer and turns their failures
// into degraded results instead of aborting the caller.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"smartpt/internal/domain"
)

// FallbackAnswer is returned whenever answer generation fails.
const FallbackAnswer = "Sorry, I couldn't generate an answer."

// ErrEmptyText is returned when asked to embed blank text.
var ErrEmptyText = errors.New("nothing to embed")

// Provider is the embedding/answer capability used by the session.
type Provider struct {
	model    string
	embedder domain.Embedder
	answerer domain.Answerer
}

// New creates a provider for the named model.
func New(model string, embedder domain.Embedder, answerer domain.Answerer) *Provider {
	return &Provider{model: model, embedder: embedder, answerer: answerer}
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Describe returns a short human-readable summary of the wiring.
func (p *Provider) Describe() string {
	return fmt.Sprintf("model=%s embedder=%s answerer=%s", p.model, p.embedder.Name(), p.answerer.Name())
}

// Embed returns the vector for text. On any failure it returns an empty vector
// together with the cause; callers treat an empty vector as "embedding unavailable".
func (p *Provider) Embed(ctx context.Context, text string) (vec []float64, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("%s embedder panicked: %v", p.embedder.Name(), r)
		}
		if err != nil {
			log.Printf("embedding failed (%s): %v", p.embedder.Name(), err)
		}
	}()
	vec, err = p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%s embedder returned an empty vector", p.embedder.Name())
	}
	return vec, nil
}

// Answer asks the answerer. On any failure it returns FallbackAnswer together
// with the cause, never an empty string.
func (p *Provider) Answer(ctx context.Context, contextText, question string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s answerer panicked: %v", p.answerer.Name(), r)
		}
		if err != nil {
			log.Printf("answer generation failed (%s): %v", p.answerer.Name(), err)
			answer = FallbackAnswer
		}
	}()
	answer, err = p.answerer.Answer(ctx, contextText, question)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("empty answer")
	}
	return strings.TrimSpace(answer), err
}
