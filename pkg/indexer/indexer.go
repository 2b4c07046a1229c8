// Package indexer builds the persisted similarity index from a directory of
// text documents.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perbu/ragchain/pkg/embedder"
	"github.com/perbu/ragchain/pkg/index"
	"github.com/perbu/ragchain/pkg/loader"
	"github.com/sirupsen/logrus"
)

type Options struct {
	DocsDir     string
	Extension   string
	OutDir      string
	Concurrency int
}

// Run loads every document in DocsDir, embeds it and saves the index to
// OutDir. Nothing is written unless every step succeeds.
func Run(ctx context.Context, opts Options, e embedder.Embedder, logger *logrus.Logger) (*index.Index, error) {
	start := time.Now()

	docs, err := loader.LoadDir(opts.DocsDir, opts.Extension)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"dir":       opts.DocsDir,
		"documents": len(docs),
	}).Info("loaded documents")
	if len(docs) == 0 {
		logger.WithField("dir", opts.DocsDir).Warn("no documents found, the index will be empty")
	}

	ix, err := Build(ctx, docs, e, opts.Concurrency, logger)
	if err != nil {
		return nil, err
	}

	if err := ix.Save(opts.OutDir); err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":      index.Path(opts.OutDir),
		"documents": ix.Len(),
		"model":     ix.ModelInfo,
		"dimension": ix.Dimension,
		"duration":  time.Since(start).String(),
	}).Info("index saved")
	return ix, nil
}

// Build embeds docs and returns them as an in-memory index, one entry per
// document in input order. Blank documents are not sent to the embedder;
// they get a zero vector, which scores 0 against every query.
func Build(ctx context.Context, docs []index.Document, e embedder.Embedder, concurrency int, logger *logrus.Logger) (*index.Index, error) {
	var texts []string
	var positions []int
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			logger.WithField("source", d.Source).Warn("document is blank, indexing it with a zero vector")
			continue
		}
		texts = append(texts, d.Text)
		positions = append(positions, i)
	}

	vecs, err := embedder.EmbedAll(ctx, e, texts, concurrency, func(done, total int) {
		if done%10 == 0 || done == total {
			logger.WithFields(logrus.Fields{"done": done, "total": total}).Debug("embedding progress")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	// The API may return a different size than the model's nominal dimension.
	dim := e.Dimension()
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}

	all := make([][]float32, len(docs))
	for j, i := range positions {
		all[i] = vecs[j]
	}

	ix := index.New(e.ModelInfo(), dim)
	for i, doc := range docs {
		vec := all[i]
		if vec == nil {
			vec = make([]float32, dim)
		}
		if err := ix.Add(doc, vec); err != nil {
			return nil, fmt.Errorf("adding %s: %w", doc.Source, err)
		}
	}
	return ix, nil
}
