package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/perbu/ragchain/pkg/prompt"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024
)

type anthropicGenerator struct {
	client anthropic.Client
	opts   Options
}

func NewAnthropicGenerator(opts Options) Generator {
	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &anthropicGenerator{
		client: anthropic.NewClient(clientOpts...),
		opts:   opts,
	}
}

func (g *anthropicGenerator) Stream(ctx context.Context, messages []prompt.Message, emit func(string) error) error {
	stream := g.client.Messages.NewStreaming(ctx, g.params(messages))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
			if event.Delta.Text != "" {
				if err := emit(event.Delta.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}

// params folds everything before the first user message into the system
// prompt; the Messages API requires the conversation to open with a user turn.
func (g *anthropicGenerator) params(messages []prompt.Message) anthropic.MessageNewParams {
	var system []string
	var turns []anthropic.MessageParam
	for _, m := range messages {
		if len(turns) == 0 && m.Role != prompt.RoleUser {
			system = append(system, m.Content)
			continue
		}
		switch m.Role {
		case prompt.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	model := anthropic.Model(defaultAnthropicModel)
	if g.opts.Model != "" {
		model = anthropic.Model(g.opts.Model)
	}

	maxTokens := g.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		Messages:  turns,
		MaxTokens: int64(maxTokens),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n"), Type: "text"},
		}
	}
	if g.opts.Temperature != nil {
		params.Temperature = anthropic.Float(*g.opts.Temperature)
	}
	return params
}
