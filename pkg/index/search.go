package index

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// Search scores every document against the query and returns the top-k
// results sorted by similarity (highest first). Ties keep insertion order.
// A query of the wrong dimension yields no results.
func (ix *Index) Search(queryEmbedding []float32, topK int, threshold float32) []SearchResult {
	if len(queryEmbedding) != ix.Dimension {
		return nil
	}

	results := make([]SearchResult, 0, len(ix.Documents))

	for i := range ix.Documents {
		score := CosineSimilarity(queryEmbedding, ix.Embeddings[i])

		if score >= threshold {
			results = append(results, SearchResult{
				Document: ix.Documents[i],
				Score:    score,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	return results
}
