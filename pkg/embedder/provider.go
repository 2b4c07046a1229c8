package embedder

import (
	"errors"
	"fmt"
)

const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

var ErrUnsupportedProvider = errors.New("unsupported embedding provider")

type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Dimension is only used by the hash provider.
	Dimension int
}

// New builds the embedder for opts.Provider. The indexer and the server must
// be given the same options or retrieval scores are meaningless.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(opts.APIKey, opts.BaseURL, opts.Model)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderHash:
		if opts.Dimension < 1 {
			return nil, fmt.Errorf("hash embedder: dimension must be positive, got %d", opts.Dimension)
		}
		return NewHashEmbedder(opts.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}
}
