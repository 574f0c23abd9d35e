// Package embedding turns product text into fixed-dimension vectors for the
// semantic search index.  Two providers exist: a deterministic hash-based
// pseudo-embedder that needs no external service, and a remote HTTP provider
// that falls back to the hash embedder on transient failure.
package embedding

import (
	"context"
	"math"
)

// ---------------------------------------------------------------------------
// Embedder interface
// ---------------------------------------------------------------------------

// Embedder converts text into a dense vector of a fixed dimension.
type Embedder interface {
	// Embed vectorises a single text.  The returned slice always has
	// Dimension() elements.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch vectorises several texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension returns the vector width.
	Dimension() int
}

// ---------------------------------------------------------------------------
// Vector math
// ---------------------------------------------------------------------------

// CosineSimilarity returns the cosine of the angle between a and b.  A small
// epsilon keeps the division defined for zero vectors, matching the search
// scoring convention that empty content similarity is 0.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-10)
}

// l2Normalize scales v in place to unit length.  Zero vectors are returned
// unchanged.
func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	mag := math.Sqrt(sum)
	for i := range v {
		v[i] /= mag
	}
}
