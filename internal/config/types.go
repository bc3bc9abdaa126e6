package config

import "github.com/ziadkadry99/courserag/internal/logging"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
	// ProviderHash is the offline bag-of-words embedder. It needs no
	// service and is only useful for demos and tests. Course names resolve
	// only through whole title words.
	ProviderHash ProviderType = "hash"
)

// SessionStoreType selects where conversation history is kept.
type SessionStoreType string

const (
	SessionStoreMemory SessionStoreType = "memory"
	SessionStoreSQLite SessionStoreType = "sqlite"
)

// Config is the top-level courserag configuration, corresponding to .courserag.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	OllamaHost        string       `yaml:"ollama_host,omitempty" koanf:"ollama_host"`
	OpenAIBaseURL     string       `yaml:"openai_base_url,omitempty" koanf:"openai_base_url"`

	MaxTokens    int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature  float64 `yaml:"temperature" koanf:"temperature"`
	RateLimitRPM int     `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`

	DocsDir     string `yaml:"docs_dir" koanf:"docs_dir"`
	DocsPattern string `yaml:"docs_pattern" koanf:"docs_pattern"`
	DataDir     string `yaml:"data_dir" koanf:"data_dir"`

	ChunkSize        int     `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap     int     `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	MaxResults       int     `yaml:"max_results" koanf:"max_results"`
	MaxHistory       int     `yaml:"max_history" koanf:"max_history"`
	ResolveThreshold float64 `yaml:"resolve_threshold" koanf:"resolve_threshold"`

	SessionStore SessionStoreType `yaml:"session_store" koanf:"session_store"`
	Server       ServerConfig     `yaml:"server" koanf:"server"`
	Log          logging.Config   `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
	// AllowAll enables CORS for every origin.
	AllowAll  bool   `yaml:"allow_all" koanf:"allow_all"`
	StaticDir string `yaml:"static_dir,omitempty" koanf:"static_dir"`
}
