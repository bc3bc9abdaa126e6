package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/assistant"
	"github.com/ziadkadry99/courserag/internal/config"
	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/db"
	"github.com/ziadkadry99/courserag/internal/embeddings"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/progress"
	"github.com/ziadkadry99/courserag/internal/rag"
	"github.com/ziadkadry99/courserag/internal/session"
	"github.com/ziadkadry99/courserag/internal/tools"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// components is everything a command may need, built from one config.
type components struct {
	cfg    *config.Config
	store  *vectordb.CourseStore
	search *tools.CourseSearchTool
	system *rag.System
	// hasLLM reports whether system can answer queries.
	hasLLM bool

	closers []func() error
}

type buildOptions struct {
	// withLLM creates the chat provider; commands that only index or
	// list courses leave it off so no API key is required.
	withLLM  bool
	progress progress.Reporter
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("closing resource", zap.Error(err))
		}
	}
}

// buildComponents wires the store, search tool, generator and sessions.
func buildComponents(cfg *config.Config, opts buildOptions) (*components, error) {
	c := &components{cfg: cfg}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	c.store, err = vectordb.NewCourseStore(embedder, vectordb.Options{
		Dir:              cfg.VectorDir(),
		ResolveThreshold: cfg.ResolveThreshold,
		MaxResults:       cfg.MaxResults,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	c.search = tools.NewCourseSearchTool(c.store, cfg.MaxResults, logger)

	var answerer rag.Answerer
	if opts.withLLM {
		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		answerer = assistant.NewGenerator(provider, tools.NewRegistry(c.search), assistant.Options{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      logger,
		})
		c.hasLLM = true
	}

	sessions, err := c.sessionStore(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.system = rag.New(c.store, answerer, session.NewManager(sessions, cfg.MaxHistory, logger), rag.Options{
		DocsPattern: cfg.DocsPattern,
		Chunker: course.NewChunker(
			course.WithChunkSize(cfg.ChunkSize),
			course.WithChunkOverlap(cfg.ChunkOverlap),
		),
		Progress: opts.progress,
		Logger:   logger,
	})
	return c, nil
}

func (c *components) sessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		d, err := db.Open(cfg.SessionDBPath())
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		c.closers = append(c.closers, d.Close)
		return session.NewSQLiteStore(d), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = config.GetPreset(cfg.Provider).EmbeddingProvider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(cfg.Provider).EmbeddingModel
	}

	opts := embeddings.Options{Provider: string(provider), Model: model}
	switch provider {
	case config.ProviderOpenAI:
		opts.APIKey = os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		opts.BaseURL = cfg.OpenAIBaseURL
	case config.ProviderOllama:
		opts.BaseURL = cfg.OllamaHost
	}
	return embeddings.New(opts)
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	var baseURL string
	switch cfg.Provider {
	case config.ProviderOllama:
		baseURL = cfg.OllamaHost
	case config.ProviderOpenAI:
		baseURL = cfg.OpenAIBaseURL
	}

	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model, baseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, cfg.RateLimitRPM), nil
}
