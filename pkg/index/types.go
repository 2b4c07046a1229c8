package index

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCorrupt is returned when a persisted index fails validation on load.
	ErrCorrupt = errors.New("corrupt index")
)

// Document is one source text file as loaded by the indexer
type Document struct {
	ID     string // Stable identifier assigned at load time
	Text   string // Whole file content, not split
	Source string // Path of the file the text came from
}

// Index holds documents and their embeddings. Documents[i] ↔ Embeddings[i].
// It is built once by the indexer and only read by the server.
type Index struct {
	Documents  []Document
	Embeddings [][]float32
	ModelInfo  string // Embedding model used to build the index
	Dimension  int    // Length of every vector in Embeddings
}

// SearchResult represents a single search result with score
type SearchResult struct {
	Document Document
	Score    float32
}

// New returns an empty index for vectors produced by the given model.
func New(modelInfo string, dimension int) *Index {
	return &Index{
		ModelInfo: modelInfo,
		Dimension: dimension,
	}
}

// Add appends a document together with its embedding.
func (ix *Index) Add(doc Document, vec []float32) error {
	if len(vec) != ix.Dimension {
		return ErrDimensionMismatch
	}
	ix.Documents = append(ix.Documents, doc)
	ix.Embeddings = append(ix.Embeddings, vec)
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.Documents)
}
