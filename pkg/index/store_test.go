package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	ix := toyIndex(t)

	require.NoError(t, ix.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ix.ModelInfo, loaded.ModelInfo)
	assert.Equal(t, ix.Dimension, loaded.Dimension)
	assert.Equal(t, ix.Documents, loaded.Documents)
	assert.Equal(t, ix.Embeddings, loaded.Embeddings)

	_, err = os.Stat(Path(dir) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestSave_OverwritesExistingIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, toyIndex(t).Save(dir))

	replacement := New("other", 1)
	require.NoError(t, replacement.Add(Document{ID: "only"}, []float32{1}))
	require.NoError(t, replacement.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.Equal(t, "other", loaded.ModelInfo)
}

func TestSaveLoad_EmptyIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, New("toy", 4).Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Empty(t, loaded.Search([]float32{1, 0, 0, 0}, 1, 0))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("not a gob stream"), 0644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoad_MismatchedLengths(t *testing.T) {
	dir := t.TempDir()
	ix := toyIndex(t)
	ix.Embeddings = ix.Embeddings[:1]
	require.NoError(t, ix.Save(dir))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrCorrupt)
}
