package similarity

import (
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/textproc"
)

// ---------------------------------------------------------------------------
// Jaccard scorer
// ---------------------------------------------------------------------------

// JaccardScorer scores a pair of texts by the overlap of their stopword-free
// token sets: |A ∩ B| / |A ∪ B|.  It ignores term frequency and word order,
// which makes it cheap and robust for short descriptions.
type JaccardScorer struct{}

// NewJaccardScorer returns a stateless Jaccard pairwise scorer.
func NewJaccardScorer() *JaccardScorer { return &JaccardScorer{} }

func (s *JaccardScorer) Name() string { return "jaccard" }

// Similarity implements Scorer.
func (s *JaccardScorer) Similarity(a, b string) float64 {
	setA := textproc.TermSet(textproc.Preprocess(a))
	setB := textproc.TermSet(textproc.Preprocess(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for term := range setA {
		if _, ok := setB[term]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
