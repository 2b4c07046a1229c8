package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyText is returned by embedders that refuse to embed an empty string.
var ErrEmptyText = errors.New("cannot embed empty text")

// Embedder interface for generating embeddings
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelInfo() string
}

// EmbedAll embeds texts with at most concurrency requests in flight.
// The result is in input order. The first failure cancels the remaining
// requests and is returned. progressFn, if set, is called with
// (completed, total) after each embedding.
func EmbedAll(ctx context.Context, e Embedder, texts []string, concurrency int, progressFn func(int, int)) ([][]float32, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	embeddings := make([][]float32, len(texts))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, texts[i])
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			embeddings[i] = vec
			if progressFn != nil {
				progressFn(int(completed.Add(1)), len(texts))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// HashEmbedder is a deterministic offline embedder. Identical texts map to
// identical vectors; it carries no semantic meaning and is meant for tests
// and for running the pipeline without an embedding API.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing vectors of the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dim: dimension}
}

// Embed spreads hashed character trigrams over the vector and normalizes it.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dim)
	if e.dim == 0 {
		return vec, nil
	}

	runes := []rune(text)
	for i := range runes {
		end := min(i+3, len(runes))
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(runes[i:end])))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dim))
		if sum&(1<<31) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	l2normalize(vec)
	return vec, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
