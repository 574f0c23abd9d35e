package similarity

import (
	"math"

	"github.com/vlxd-platform/market-intelligence/internal/intelligence/textproc"
)

// ---------------------------------------------------------------------------
// TF-IDF cosine scorer
// ---------------------------------------------------------------------------

// TFIDFScorer scores a pair of texts by vectorising both over their combined
// unigram+bigram vocabulary with smoothed inverse document frequency, then
// taking the cosine of the two L2-normalised vectors.  The two texts form the
// entire corpus for IDF purposes, so terms appearing in both are discounted
// relative to terms unique to one side.
type TFIDFScorer struct{}

// NewTFIDFScorer returns a stateless TF-IDF pairwise scorer.
func NewTFIDFScorer() *TFIDFScorer { return &TFIDFScorer{} }

func (s *TFIDFScorer) Name() string { return "tfidf" }

// terms produces the unigram+bigram term list of a preprocessed text.
func terms(text string) []string {
	tokens := textproc.Preprocess(text)
	return append(tokens, textproc.Bigrams(tokens)...)
}

// Similarity implements Scorer.
func (s *TFIDFScorer) Similarity(a, b string) float64 {
	termsA := terms(a)
	termsB := terms(b)
	if len(termsA) == 0 || len(termsB) == 0 {
		return 0
	}

	tfA := textproc.TermFrequencies(termsA)
	tfB := textproc.TermFrequencies(termsB)

	// Smoothed IDF over the two-document corpus:
	// idf(t) = ln((1 + n) / (1 + df(t))) + 1, with n = 2.
	vocab := make(map[string]float64, len(tfA)+len(tfB))
	for term := range tfA {
		vocab[term] = 0
	}
	for term := range tfB {
		vocab[term] = 0
	}
	for term := range vocab {
		df := 0.0
		if tfA[term] > 0 {
			df++
		}
		if tfB[term] > 0 {
			df++
		}
		vocab[term] = math.Log(3.0/(1.0+df)) + 1.0
	}

	var dot, normA, normB float64
	for term, idf := range vocab {
		wa := float64(tfA[term]) * idf
		wb := float64(tfB[term]) * idf
		dot += wa * wb
		normA += wa * wa
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
