package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/perbu/ragchain/pkg/embedder"
	"github.com/perbu/ragchain/pkg/index"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"Teabags spend their lives waiting in a tin for the kettle to boil.",
	"A dishcloth knows every plate in the house and most of the forks.",
	"Old t-shirts become dusters and polish the windows on Sundays.",
}

func buildIndex(t *testing.T, e embedder.Embedder) *index.Index {
	ix := index.New(e.ModelInfo(), e.Dimension())
	for i, text := range corpus {
		vec, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, ix.Add(index.Document{ID: string(rune('a' + i)), Text: text}, vec))
	}
	return ix
}

func TestRetrieve_VerbatimQueryRanksFirstAfterReload(t *testing.T) {
	e := embedder.NewHashEmbedder(256)
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, buildIndex(t, e).Save(dir))

	loaded, err := index.Load(dir)
	require.NoError(t, err)
	r := New(e, loaded, 1)

	for _, text := range corpus {
		results, err := r.Retrieve(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, text, results[0].Document.Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	e := embedder.NewHashEmbedder(16)
	r := New(e, index.New(e.ModelInfo(), e.Dimension()), 1)

	results, err := r.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, r.Len())
}

func TestRetrieve_EmbedError(t *testing.T) {
	e := embedder.NewHashEmbedder(16)
	r := New(e, buildIndex(t, e), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad(t *testing.T) {
	e := embedder.NewHashEmbedder(64)
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, buildIndex(t, e).Save(dir))

	tests := []struct {
		name     string
		embedder embedder.Embedder
		warn     bool
	}{
		{name: "same model", embedder: e, warn: false},
		{name: "different model", embedder: embedder.NewHashEmbedder(32), warn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()

			r, err := Load(dir, tt.embedder, 1, logger)
			require.NoError(t, err)
			assert.Equal(t, len(corpus), r.Len())

			var warned bool
			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel {
					warned = true
					assert.Equal(t, "hash-64", entry.Data["model"])
					assert.Equal(t, "hash-32", entry.Data["embedder_model"])
				}
			}
			assert.Equal(t, tt.warn, warned)
			assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	logger, hook := test.NewNullLogger()

	_, err := Load(filepath.Join(t.TempDir(), "nope"), embedder.NewHashEmbedder(8), 1, logger)

	assert.Error(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
