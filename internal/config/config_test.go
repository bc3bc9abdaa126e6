package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 100 {
		t.Errorf("expected chunking 800/100, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MaxResults != 5 {
		t.Errorf("expected default max_results 5, got %d", cfg.MaxResults)
	}
	if cfg.MaxHistory != 2 {
		t.Errorf("expected default max_history 2, got %d", cfg.MaxHistory)
	}
	if cfg.ResolveThreshold != 0.75 {
		t.Errorf("expected default resolve_threshold 0.75, got %f", cfg.ResolveThreshold)
	}
	if cfg.MaxTokens != 800 || cfg.Temperature != 0 {
		t.Errorf("expected max_tokens 800 and temperature 0, got %d and %f", cfg.MaxTokens, cfg.Temperature)
	}
	if cfg.VectorDir() != filepath.Join(".courserag", "vectordb") {
		t.Errorf("unexpected vector dir %q", cfg.VectorDir())
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.courserag.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.DocsPattern = "**/*.txt"
	original.ChunkSize = 500
	original.ResolveThreshold = 0.5
	original.SessionStore = SessionStoreSQLite
	original.Server.Port = 9090
	original.Log.Format = "json"

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.DocsPattern != original.DocsPattern {
		t.Errorf("docs_pattern: got %q, want %q", loaded.DocsPattern, original.DocsPattern)
	}
	if loaded.ChunkSize != original.ChunkSize {
		t.Errorf("chunk_size: got %d, want %d", loaded.ChunkSize, original.ChunkSize)
	}
	if loaded.ResolveThreshold != original.ResolveThreshold {
		t.Errorf("resolve_threshold: got %f, want %f", loaded.ResolveThreshold, original.ResolveThreshold)
	}
	if loaded.SessionStore != original.SessionStore {
		t.Errorf("session_store: got %q, want %q", loaded.SessionStore, original.SessionStore)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("server.port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.Log.Format != "json" {
		t.Errorf("log.format: got %q, want json", loaded.Log.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("COURSERAG_PROVIDER", "openai")
	t.Setenv("COURSERAG_MAX_RESULTS", "8")
	t.Setenv("COURSERAG_SERVER__PORT", "8123")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.MaxResults != 8 {
		t.Errorf("max_results override failed: got %d", loaded.MaxResults)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("nested server.port override failed: got %d", loaded.Server.Port)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid provider", func(c *Config) { c.Provider = "invalid" }},
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"hash is not a chat provider", func(c *Config) { c.Provider = ProviderHash }},
		{"invalid embedding provider", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }},
		{"empty embedding model", func(c *Config) { c.EmbeddingModel = "" }},
		{"negative max tokens", func(c *Config) { c.MaxTokens = -1 }},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }},
		{"negative rate limit", func(c *Config) { c.RateLimitRPM = -1 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad docs pattern", func(c *Config) { c.DocsPattern = "**/*.{txt" }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"overlap not below size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }},
		{"negative max history", func(c *Config) { c.MaxHistory = -1 }},
		{"zero threshold", func(c *Config) { c.ResolveThreshold = 0 }},
		{"threshold above max distance", func(c *Config) { c.ResolveThreshold = 2.5 }},
		{"unknown session store", func(c *Config) { c.SessionStore = "redis" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateHashEmbeddingsNeedNoModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingProvider = ProviderHash
	cfg.EmbeddingModel = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("hash embeddings should not require a model: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset(ProviderOllama)
	if p.EmbeddingProvider != ProviderOllama || p.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("unexpected ollama preset %+v", p)
	}

	p = GetPreset(ProviderOpenAI)
	if p.Model != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %q", p.Model)
	}

	// Unknown provider falls back.
	p = GetPreset("unknown")
	if p.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected fallback to sonnet, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
		{ProviderHash, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}
