package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ModelName != "mistral" || cfg.Embedder.Type != "hashing" || cfg.Answerer.Type != "extractive" || cfg.VectorStore.Type != "memory" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Retrieval.DefaultK != 3 || cfg.Retrieval.MaxK != 5 {
		t.Errorf("retrieval = %+v, want 3 of 5", cfg.Retrieval)
	}
	if cfg.Embedder.Dimension != 512 {
		t.Errorf("dimension = %d, want 512", cfg.Embedder.Dimension)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		check func(t *testing.T, cfg *AppConfig)
	}{
		{
			name: "ollama uses model_name",
			yaml: "model_name: llama3\nembedder:\n  type: ollama\nanswerer:\n  type: ollama\n",
			check: func(t *testing.T, cfg *AppConfig) {
				if cfg.Embedder.Model != "llama3" || cfg.Answerer.Model != "llama3" {
					t.Errorf("models = %q/%q, want llama3", cfg.Embedder.Model, cfg.Answerer.Model)
				}
				if cfg.Embedder.TimeoutSecs != 30 || cfg.Answerer.TimeoutSecs != 60 {
					t.Errorf("timeouts = %d/%d", cfg.Embedder.TimeoutSecs, cfg.Answerer.TimeoutSecs)
				}
			},
		},
		{
			name: "openai embedder",
			yaml: "embedder:\n  type: openai\n",
			check: func(t *testing.T, cfg *AppConfig) {
				if cfg.Embedder.APIKeyEnv != "OPENAI_API_KEY" || cfg.Embedder.Model != "text-embedding-3-small" {
					t.Errorf("embedder = %+v", cfg.Embedder)
				}
			},
		},
		{
			name: "sqlite store without section",
			yaml: "vector_store:\n  type: sqlite\n",
			check: func(t *testing.T, cfg *AppConfig) {
				if cfg.VectorStore.SQLite == nil || cfg.VectorStore.SQLite.Path != filepath.Join("data", "smartpt.db") {
					t.Errorf("sqlite = %+v", cfg.VectorStore.SQLite)
				}
			},
		},
		{
			name: "redis store keeps explicit address",
			yaml: "vector_store:\n  type: redis\n  redis:\n    addr: cache:6380\n",
			check: func(t *testing.T, cfg *AppConfig) {
				if cfg.VectorStore.Redis.Addr != "cache:6380" {
					t.Errorf("redis addr = %q", cfg.VectorStore.Redis.Addr)
				}
			},
		},
		{
			name: "default k capped by max k",
			yaml: "retrieval:\n  default_k: 4\n  max_k: 2\n",
			check: func(t *testing.T, cfg *AppConfig) {
				if cfg.Retrieval.DefaultK != 2 {
					t.Errorf("default_k = %d, want 2", cfg.Retrieval.DefaultK)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedder: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted invalid YAML")
	}
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartpt", "config.yaml")
	cfg, got, err := loadOrCreate(path)
	if err != nil {
		t.Fatalf("loadOrCreate failed: %v", err)
	}
	if got != path || cfg.ModelName != "mistral" {
		t.Errorf("loadOrCreate = %q, %+v", got, cfg)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.VectorStore.Type != "memory" || reloaded.Retrieval.MaxK != 5 {
		t.Errorf("saved config = %+v", reloaded)
	}
}
