package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string `yaml:"type"`
	Model       string `yaml:"model,omitempty"`
	Dimension   int    `yaml:"dimension,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// AnswererConfig selects and configures the answer generator.
type AnswererConfig struct {
	Type         string `yaml:"type"`
	Model        string `yaml:"model,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	APIKeyEnv    string `yaml:"api_key_env,omitempty"`
	TimeoutSecs  int    `yaml:"timeout_secs,omitempty"`
	MaxSentences int    `yaml:"max_sentences,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RedisConfig contains connection details for a Redis Stack server.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	IndexName   string `yaml:"index_name"`
	KeyPrefix   string `yaml:"key_prefix"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RetrievalConfig bounds the number of matches used per question.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	ModelName   string            `yaml:"model_name"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Answerer    AnswererConfig    `yaml:"answerer"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	SamplePath  string            `yaml:"sample_path"`
	LogFile     string            `yaml:"log_file,omitempty"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/smartpt/config.yaml.
// If neither exists, it writes defaults to ~/.config/smartpt/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	return loadOrCreate(userPath)
}

func loadOrCreate(path string) (*AppConfig, string, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, path, err
	}
	cfg := defaultConfig()
	if err := Save(path, cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "smartpt", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		ModelName:   "mistral",
		Embedder:    EmbedderConfig{Type: "hashing"},
		Answerer:    AnswererConfig{Type: "extractive"},
		VectorStore: VectorStoreConfig{Type: "memory"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.ModelName == "" {
		cfg.ModelName = "mistral"
	}
	if cfg.Retrieval.MaxK <= 0 {
		cfg.Retrieval.MaxK = 5
	}
	if cfg.Retrieval.DefaultK <= 0 {
		cfg.Retrieval.DefaultK = 3
	}
	if cfg.Retrieval.DefaultK > cfg.Retrieval.MaxK {
		cfg.Retrieval.DefaultK = cfg.Retrieval.MaxK
	}
	if cfg.SamplePath == "" {
		cfg.SamplePath = filepath.Join("data", "sample_inventory.xlsx")
	}

	e := &cfg.Embedder
	switch e.Type {
	case "", "hashing":
		e.Type = "hashing"
		if e.Dimension == 0 {
			e.Dimension = 512
		}
	case "openai":
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com/v1"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
	case "ollama":
		if e.Model == "" {
			e.Model = cfg.ModelName
		}
	}
	if e.Type != "hashing" && e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}

	a := &cfg.Answerer
	switch a.Type {
	case "", "extractive":
		a.Type = "extractive"
		if a.MaxSentences == 0 {
			a.MaxSentences = 3
		}
	case "openai":
		if a.APIKeyEnv == "" {
			a.APIKeyEnv = "OPENAI_API_KEY"
		}
		if a.Model == "" {
			a.Model = "gpt-4o-mini"
		}
	case "ollama":
		if a.Model == "" {
			a.Model = cfg.ModelName
		}
	}
	if a.Type != "extractive" && a.TimeoutSecs == 0 {
		a.TimeoutSecs = 60
	}

	vs := &cfg.VectorStore
	switch vs.Type {
	case "":
		vs.Type = "memory"
	case "sqlite":
		if vs.SQLite == nil {
			vs.SQLite = &SQLiteConfig{}
		}
		if vs.SQLite.Path == "" {
			vs.SQLite.Path = filepath.Join("data", "smartpt.db")
		}
	case "redis":
		if vs.Redis == nil {
			vs.Redis = &RedisConfig{}
		}
		if vs.Redis.Addr == "" {
			vs.Redis.Addr = "localhost:6379"
		}
	case "qdrant":
		if vs.Qdrant == nil {
			vs.Qdrant = &QdrantConfig{}
		}
		if vs.Qdrant.URL == "" {
			vs.Qdrant.URL = "http://localhost:6333"
		}
		if vs.Qdrant.Collection == "" {
			vs.Qdrant.Collection = "smartpt"
		}
	}
}
