// Package chain runs the query pipeline: auxiliary context, retrieval,
// prompt rendering and streamed generation.
package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perbu/ragchain/pkg/index"
	"github.com/perbu/ragchain/pkg/llm"
	"github.com/perbu/ragchain/pkg/metrics"
	"github.com/perbu/ragchain/pkg/prompt"
	"github.com/perbu/ragchain/pkg/result"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPersona  = "default rag"
	DefaultQuestion = "What do you mean?"

	// NoContext stands in for the retrieved context when nothing matched.
	NoContext = "No relevant context found."
)

const reasonNoMatch = "no match"

// Retriever finds the documents most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]index.SearchResult, error)
}

// ContextFetcher supplies the auxiliary prompt context. It never fails.
type ContextFetcher interface {
	Fetch(ctx context.Context) result.Text
}

// Request is one query as received from a client.
type Request struct {
	Persona  string
	Question string
}

// WithDefaults fills in missing fields.
func (r Request) WithDefaults() Request {
	if r.Persona == "" {
		r.Persona = DefaultPersona
	}
	if r.Question == "" {
		r.Question = DefaultQuestion
	}
	return r
}

// Prepared is a rendered prompt ready for generation.
type Prepared struct {
	Query    string
	Context  result.Text
	External result.Text
	Messages []prompt.Message
}

type Pipeline struct {
	fetcher   ContextFetcher
	generator llm.Generator
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func New(fetcher ContextFetcher, generator llm.Generator, m *metrics.Metrics, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		generator: generator,
		metrics:   m,
		logger:    logger,
	}
}

// Prepare gathers everything the prompt needs. The auxiliary context is
// fetched before retrieval. Only a retrieval failure is returned as an error.
func (p *Pipeline) Prepare(ctx context.Context, r Retriever, req Request) (*Prepared, error) {
	req = req.WithDefaults()
	query := prompt.Query(req.Persona, req.Question)

	start := time.Now()
	external := p.fetcher.Fetch(ctx)
	p.observe("auxiliary", start)
	if external.IsFallback() {
		p.metrics.Fallbacks.WithLabelValues("auxiliary", external.Reason).Inc()
	}

	start = time.Now()
	results, err := r.Retrieve(ctx, query)
	p.observe("retrieval", start)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	retrieved := joinResults(results)
	if retrieved.IsFallback() {
		p.metrics.Fallbacks.WithLabelValues("retrieval", retrieved.Reason).Inc()
	}

	p.logger.WithFields(logrus.Fields{
		"persona":           req.Persona,
		"matches":           len(results),
		"external_fallback": external.IsFallback(),
	}).Debug("prepared prompt")

	return &Prepared{
		Query:    query,
		Context:  retrieved,
		External: external,
		Messages: prompt.Render(prompt.Context{
			Context:      retrieved.Value,
			ExternalData: external.Value,
			Question:     query,
		}),
	}, nil
}

// Generate streams the model's answer to emit, skipping empty fragments.
func (p *Pipeline) Generate(ctx context.Context, prepared *Prepared, emit func(chunk string) error) error {
	start := time.Now()
	defer p.observe("generation", start)

	return p.generator.Stream(ctx, prepared.Messages, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		p.metrics.StreamChunks.Inc()
		return emit(chunk)
	})
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

func joinResults(results []index.SearchResult) result.Text {
	if len(results) == 0 {
		return result.Fallback(NoContext, reasonNoMatch)
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	return result.Ok(strings.Join(texts, "\n\n"))
}
