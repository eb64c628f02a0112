// Package embedding adapts eino embedding components to the domain Embedder.
// Concrete offline and REST embedders live in the hashing and ollama subpackages.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
)

// Eino wraps an eino embedding model.
type Eino struct {
	name     string
	embedder einoEmbedding.Embedder
}

// NewEino wraps an eino embedder under the given name.
func NewEino(name string, embedder einoEmbedding.Embedder) *Eino {
	return &Eino{name: name, embedder: embedder}
}

// Name returns the identifier of this embedder implementation.
func (e *Eino) Name() string { return e.name }

// Embed generates an embedding vector for a single text.
func (e *Eino) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return vectors[0], nil
}

// OpenAIConfig configures an OpenAI-compatible embedding model.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewOpenAI creates an OpenAI-compatible embedder through eino-ext.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*Eino, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		return nil, errors.New("openai embedder: model is required")
	}
	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  key,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder init failed: %w", err)
	}
	return NewEino("openai", emb), nil
}
