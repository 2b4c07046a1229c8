package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/perbu/ragchain/pkg/prompt"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var ErrUnsupportedProvider = errors.New("unsupported llm provider")

// Generator streams a chat completion. Each non-empty fragment is passed to
// emit in arrival order; an error from emit stops the stream and is returned.
type Generator interface {
	Stream(ctx context.Context, messages []prompt.Message, emit func(chunk string) error) error
}

type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	// Temperature is left to the provider default when nil.
	Temperature *float64
	MaxTokens   int
}

// New builds the generator for opts.Provider.
func New(opts Options) (Generator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", opts.Provider)
	}
	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(opts), nil
	case ProviderAnthropic:
		return NewAnthropicGenerator(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}
}
