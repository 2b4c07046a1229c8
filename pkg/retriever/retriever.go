package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/perbu/ragchain/pkg/embedder"
	"github.com/perbu/ragchain/pkg/index"
	"github.com/sirupsen/logrus"
)

// Retriever answers a query with the k most similar indexed documents.
type Retriever struct {
	embedder embedder.Embedder
	index    *index.Index
	k        int
}

// New wraps a loaded index. The embedder must be the one the index was built with.
func New(e embedder.Embedder, ix *index.Index, k int) *Retriever {
	return &Retriever{embedder: e, index: ix, k: k}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]index.SearchResult, error) {
	if r.index.Len() == 0 {
		return nil, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.index.Search(vec, r.k, -1), nil
}

// Len reports how many documents are searchable.
func (r *Retriever) Len() int {
	return r.index.Len()
}

// Load reads the index persisted in dir and wraps it for k-nearest lookups.
// An index built with a different embedding model still loads, with a warning.
func Load(dir string, e embedder.Embedder, k int, logger *logrus.Logger) (*Retriever, error) {
	start := time.Now()
	ix, err := index.Load(dir)
	if err != nil {
		logger.WithError(err).WithField("dir", dir).Error("failed to load index")
		return nil, err
	}

	entry := logger.WithFields(logrus.Fields{
		"documents": ix.Len(),
		"model":     ix.ModelInfo,
		"dimension": ix.Dimension,
		"duration":  time.Since(start).String(),
	})
	if ix.ModelInfo != e.ModelInfo() {
		entry.WithField("embedder_model", e.ModelInfo()).Warn("index was built with a different embedding model")
	}
	entry.Info("index loaded")

	return New(e, ix, k), nil
}
