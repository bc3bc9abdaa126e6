package config

import (
	"path/filepath"

	"github.com/ziadkadry99/courserag/internal/logging"
)

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = ".courserag.yml"

// Preset describes the models suggested for a provider.
type Preset struct {
	Model             string
	EmbeddingProvider ProviderType
	EmbeddingModel    string
}

// presets maps each chat provider to its suggested models. Providers without
// an embeddings API fall back to OpenAI embeddings.
var presets = map[ProviderType]Preset{
	ProviderAnthropic:  {Model: "claude-sonnet-4-5-20250929", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:     {Model: "gpt-4o-mini", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenRouter: {Model: "anthropic/claude-sonnet-4.5", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:     {Model: "llama3.1", EmbeddingProvider: ProviderOllama, EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             "claude-sonnet-4-5-20250929",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		MaxTokens:         800,
		Temperature:       0,
		DocsDir:           "docs",
		DocsPattern:       "**/*.{txt,md}",
		DataDir:           ".courserag",
		ChunkSize:         800,
		ChunkOverlap:      100,
		MaxResults:        5,
		MaxHistory:        2,
		ResolveThreshold:  0.75,
		SessionStore:      SessionStoreMemory,
		Server: ServerConfig{
			Port:     8000,
			AllowAll: true,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetPreset returns the preset for the given provider, or the Anthropic
// preset if the provider is unknown.
func GetPreset(provider ProviderType) Preset {
	if p, ok := presets[provider]; ok {
		return p
	}
	return presets[ProviderAnthropic]
}

// VectorDir is where the vector store persists its collections.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectordb")
}

// SessionDBPath is the SQLite file used when SessionStore is sqlite.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}
