// Package chat answers questions with an eino chat model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultOllamaBaseURL is Ollama's OpenAI-compatible endpoint.
const DefaultOllamaBaseURL = "http://localhost:11434/v1"

const systemPrompt = "You are an inventory assistant. Use the following context to answer the question."

// Answerer sends the context and question to a chat model.
type Answerer struct {
	name  string
	model model.BaseChatModel
}

// NewAnswerer wraps a chat model under the given name.
func NewAnswerer(name string, m model.BaseChatModel) *Answerer {
	return &Answerer{name: name, model: m}
}

// Name returns the identifier of this answerer implementation.
func (a *Answerer) Name() string { return a.name }

// Answer generates a reply and returns it trimmed.
func (a *Answerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(Prompt(contextText, question)),
	}
	out, err := a.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if out == nil {
		return "", errors.New("chat model returned no message")
	}
	reply := strings.TrimSpace(out.Content)
	if reply == "" {
		return "", errors.New("chat model returned an empty reply")
	}
	return reply, nil
}

// Prompt renders the user turn carrying context and question.
func Prompt(contextText, question string) string {
	return fmt.Sprintf("Context: %s\nQuestion: %s\nAnswer:", contextText, question)
}

// Config configures an OpenAI-compatible chat model.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewOpenAI creates an answerer backed by an OpenAI-compatible chat model.
func NewOpenAI(ctx context.Context, cfg Config) (*Answerer, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	return newOpenAICompatible(ctx, "openai", key, cfg)
}

// NewOllama creates an answerer talking to Ollama's OpenAI-compatible API.
// Ollama ignores the key, so a placeholder is sent when none is configured.
func NewOllama(ctx context.Context, cfg Config) (*Answerer, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	key := "ollama"
	if cfg.APIKeyEnv != "" {
		if v := os.Getenv(cfg.APIKeyEnv); v != "" {
			key = v
		}
	}
	return newOpenAICompatible(ctx, "ollama", key, cfg)
}

func newOpenAICompatible(ctx context.Context, name, key string, cfg Config) (*Answerer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s answerer: model is required", name)
	}
	m, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  key,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s chat model init failed: %w", name, err)
	}
	return NewAnswerer(name, m), nil
}
