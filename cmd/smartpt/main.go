package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"smartpt/internal/answer/chat"
	"smartpt/internal/answer/extractive"
	"smartpt/internal/config"
	"smartpt/internal/domain"
	"smartpt/internal/embedding"
	"smartpt/internal/embedding/hashing"
	"smartpt/internal/embedding/ollama"
	"smartpt/internal/ingest"
	"smartpt/internal/provider"
	"smartpt/internal/service"
	"smartpt/internal/tui"
	"smartpt/internal/vectorstore"
	"smartpt/internal/vectorstore/memory"
	"smartpt/internal/vectorstore/qdrant"
	"smartpt/internal/vectorstore/redis"
	"smartpt/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath    string
		question   string
		loadSample bool
		k          int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/smartpt/config.yaml if not provided)")
	flag.StringVar(&question, "q", "", "Answer a single question and exit")
	flag.BoolVar(&loadSample, "sample", false, "Load the sample inventory before starting")
	flag.IntVar(&k, "k", 0, "Number of matches to use per question (default from config)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: smartpt [--config=config.yaml] [--sample] [-q question] [file.xlsx|file.xls|file.pdf ...]")
		flag.PrintDefaults()
	}
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	interactive := question == ""
	if interactive {
		if cfg.LogFile != "" {
			f, err := tea.LogToFile(cfg.LogFile, "smartpt")
			if err != nil {
				log.Fatalf("failed to open log file: %v", err)
			}
			defer f.Close()
		} else {
			log.SetOutput(io.Discard)
		}
	}

	ctx := context.Background()

	// Assemble components
	emb, err := buildEmbedder(ctx, cfg)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	ans, err := buildAnswerer(ctx, cfg)
	if err != nil {
		log.Fatalf("answerer init failed: %v", err)
	}
	st, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("vector store init failed: %v", err)
	}
	defer st.Close()

	p := provider.New(cfg.ModelName, emb, ans)
	sess := service.NewSession(p, st, ingest.DefaultRegistry(), service.Options{
		DefaultK:   cfg.Retrieval.DefaultK,
		MaxK:       cfg.Retrieval.MaxK,
		SamplePath: cfg.SamplePath,
	})

	if err := sess.Start(ctx); err != nil {
		log.Printf("document store not emptied: %v", err)
	}

	if loadSample {
		if _, err := sess.LoadSample(ctx); err != nil {
			log.Printf("sample load failed: %v", err)
		}
	}
	if len(inputs) > 0 {
		results, err := sess.UploadFiles(ctx, inputs)
		for _, r := range results {
			for _, w := range r.Warnings {
				log.Printf("%s: %s", r.Filename, w)
			}
		}
		if err != nil {
			log.Printf("some files were not loaded: %v", err)
		}
	}

	if !interactive {
		code := answerOnce(ctx, sess, question, k)
		st.Close()
		os.Exit(code)
	}

	m := tui.New(sess, sess.Describe())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

func answerOnce(ctx context.Context, sess *service.Session, question string, k int) int {
	ans, err := sess.Ask(ctx, service.Question{Text: question, K: k})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
		return 1
	}
	fmt.Println(ans.Text)
	fmt.Println()
	for _, s := range ans.Sources {
		fmt.Println(s)
	}
	for _, w := range ans.Warnings {
		fmt.Fprintln(os.Stderr, "Warning:", w)
	}
	return 0
}

func buildEmbedder(ctx context.Context, cfg *config.AppConfig) (domain.Embedder, error) {
	e := cfg.Embedder
	timeout := time.Duration(e.TimeoutSecs) * time.Second
	switch e.Type {
	case "hashing", "":
		return hashing.NewEmbedder(e.Dimension), nil
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:    e.BaseURL,
			APIKeyEnv:  e.APIKeyEnv,
			Model:      e.Model,
			Timeout:    timeout,
			MaxRetries: 2,
		})
	case "openai":
		return embedding.NewOpenAI(ctx, embedding.OpenAIConfig{
			BaseURL:   e.BaseURL,
			APIKeyEnv: e.APIKeyEnv,
			Model:     e.Model,
			Timeout:   timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", e.Type)
	}
}

func buildAnswerer(ctx context.Context, cfg *config.AppConfig) (domain.Answerer, error) {
	a := cfg.Answerer
	ccfg := chat.Config{
		BaseURL:   a.BaseURL,
		APIKeyEnv: a.APIKeyEnv,
		Model:     a.Model,
		Timeout:   time.Duration(a.TimeoutSecs) * time.Second,
	}
	switch a.Type {
	case "extractive", "":
		return extractive.NewAnswerer(a.MaxSentences), nil
	case "openai":
		return chat.NewOpenAI(ctx, ccfg)
	case "ollama":
		return chat.NewOllama(ctx, ccfg)
	default:
		return nil, fmt.Errorf("unknown answerer: %s", a.Type)
	}
}

func buildStore(ctx context.Context, cfg *config.AppConfig) (vectorstore.Storage, error) {
	vs := cfg.VectorStore
	switch vs.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "sqlite":
		if vs.SQLite == nil {
			return nil, fmt.Errorf("sqlite config missing")
		}
		if dir := filepath.Dir(vs.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(vs.SQLite.Path)
	case "redis":
		if vs.Redis == nil {
			return nil, fmt.Errorf("redis config missing")
		}
		var password string
		if vs.Redis.PasswordEnv != "" {
			password = os.Getenv(vs.Redis.PasswordEnv)
		}
		return redis.New(ctx, redis.Config{
			Addr:      vs.Redis.Addr,
			Password:  password,
			DB:        vs.Redis.DB,
			IndexName: vs.Redis.IndexName,
			KeyPrefix: vs.Redis.KeyPrefix,
			Timeout:   time.Duration(vs.Redis.TimeoutSecs) * time.Second,
		})
	case "qdrant":
		if vs.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Qdrant.Collection,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", vs.Type)
	}
}
