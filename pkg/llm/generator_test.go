package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/perbu/ragchain/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessages = prompt.Render(prompt.Context{
	Context:      "Teabags steep.",
	ExternalData: "none",
	Question:     prompt.Query("teabag", "how are you"),
})

func collect(t *testing.T, g Generator) ([]string, error) {
	t.Helper()
	var chunks []string
	err := g.Stream(context.Background(), testMessages, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	return chunks, err
}

func TestNew(t *testing.T) {
	g, err := New(Options{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &openAIGenerator{}, g)

	g, err = New(Options{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &anthropicGenerator{}, g)

	_, err = New(Options{Provider: "carrier-pigeon", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = New(Options{Provider: ProviderOpenAI})
	assert.Error(t, err)
}

func openAIChunk(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q}}]}`, content)
}

func TestOpenAIGenerator_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)
		assert.Contains(t, string(body), `"role":"assistant"`)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hello", "", " from", " a teabag"} {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", openAIChunk(part))
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})

	chunks, err := collect(t, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " from", " a teabag"}, chunks)
}

func TestOpenAIGenerator_Temperature(t *testing.T) {
	zero, warm := 0.0, 0.7
	tests := []struct {
		name        string
		temperature *float64
		sent        bool
	}{
		{name: "provider default", temperature: nil, sent: false},
		{name: "zero", temperature: &zero, sent: true},
		{name: "set", temperature: &warm, sent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				body = string(raw)
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, "data: [DONE]\n\n")
			}))
			defer srv.Close()

			g := NewOpenAIGenerator(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Temperature: tt.temperature})

			_, err := collect(t, g)
			require.NoError(t, err)
			assert.Equal(t, tt.sent, strings.Contains(body, `"temperature":`))
		})
	}
}

func TestOpenAIGenerator_EmitErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprintf(w, "data: %s\n\n", openAIChunk("one"))
		_, _ = fmt.Fprintf(w, "data: %s\n\n", openAIChunk("two"))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	stop := errors.New("client gone")

	calls := 0
	err := g.Stream(context.Background(), testMessages, func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestOpenAIGenerator_RequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(Options{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})

	chunks, err := collect(t, g)
	assert.Error(t, err)
	assert.Empty(t, chunks)
}

func TestAnthropicGenerator_Params(t *testing.T) {
	g := NewAnthropicGenerator(Options{APIKey: "k"}).(*anthropicGenerator)

	params := g.params(testMessages)

	require.Len(t, params.System, 1)
	assert.True(t, strings.HasPrefix(params.System[0].Text, "Answer the question from a rag's perspective"))
	assert.Contains(t, params.System[0].Text, "keep it light and fun")
	require.Len(t, params.Messages, 1)
	assert.Equal(t, int64(defaultAnthropicMaxTokens), params.MaxTokens)
	assert.Equal(t, defaultAnthropicModel, string(params.Model))
	assert.False(t, params.Temperature.Valid())
}

func TestAnthropicGenerator_ZeroTemperature(t *testing.T) {
	zero := 0.0
	g := NewAnthropicGenerator(Options{APIKey: "k", Temperature: &zero}).(*anthropicGenerator)

	params := g.params(testMessages)

	require.True(t, params.Temperature.Valid())
	assert.Equal(t, 0.0, params.Temperature.Value)
}

func TestAnthropicGenerator_Stream(t *testing.T) {
	events := []struct{ name, data string }{
		{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Steeped"}}`},
		{"content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" and happy"}}`},
		{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		{"message_stop", `{"type":"message_stop"}`},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
		}
	}))
	defer srv.Close()

	g := NewAnthropicGenerator(Options{APIKey: "k", BaseURL: srv.URL})

	chunks, err := collect(t, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Steeped", " and happy"}, chunks)
}
