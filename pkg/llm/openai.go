package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/perbu/ragchain/pkg/prompt"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

type openAIGenerator struct {
	client *openai.Client
	opts   Options
}

func NewOpenAIGenerator(opts Options) Generator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &openAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

func (g *openAIGenerator) Stream(ctx context.Context, messages []prompt.Message, emit func(string) error) error {
	model := g.opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	}
	if g.opts.MaxTokens > 0 {
		req.MaxTokens = g.opts.MaxTokens
	}
	if t := g.opts.Temperature; t != nil {
		req.Temperature = float32(*t)
		// A zero temperature is dropped by omitempty.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("openai stream request failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai stream: %w", err)
		}
		for _, choice := range resp.Choices {
			if content := choice.Delta.Content; content != "" {
				if err := emit(content); err != nil {
					return err
				}
			}
		}
	}
}

func toOpenAIMessages(messages []prompt.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case prompt.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case prompt.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
