package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model. The vector
	// store records it to detect model changes between runs.
	Name() string
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash" // whole-word matching only, see HashEmbedder
)

// Options configures New.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// New builds an Embedder for the named provider.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings require an API key (set OPENAI_API_KEY)")
		}
		model := OpenAIModel(opts.Model)
		if model == "" {
			model = ModelTextEmbedding3Small
		}
		return NewOpenAIEmbedder(opts.APIKey, model, opts.BaseURL), nil
	case ProviderOllama:
		model := opts.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		dims := opts.Dimensions
		if dims <= 0 {
			dims = 768
		}
		return NewOllamaEmbedder(model, dims, opts.BaseURL), nil
	case ProviderHash:
		return NewHashEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", opts.Provider)
	}
}
