// Package similarity provides pairwise text similarity scoring used by the
// contractor matching service.  Two strategies are available: TF-IDF cosine
// similarity over unigrams and bigrams, and token-set Jaccard overlap.
package similarity

import "fmt"

// ---------------------------------------------------------------------------
// Scorer interface
// ---------------------------------------------------------------------------

// Scorer computes a similarity score in [0, 1] for a pair of texts.
// A score of 1 means identical content after normalisation; 0 means no
// overlap.  Either text being empty always yields 0.
type Scorer interface {
	// Similarity returns the pairwise score.  Implementations are pure and
	// safe for concurrent use.
	Similarity(a, b string) float64

	// Name identifies the strategy ("tfidf" or "jaccard").
	Name() string
}

// NewScorer constructs the Scorer for the named strategy.  The strategy is
// fixed at construction; callers needing runtime fallback hold both.
func NewScorer(strategy string) (Scorer, error) {
	switch strategy {
	case "tfidf":
		return NewTFIDFScorer(), nil
	case "jaccard":
		return NewJaccardScorer(), nil
	default:
		return nil, fmt.Errorf("similarity: unknown strategy %q", strategy)
	}
}
