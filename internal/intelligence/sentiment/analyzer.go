// Package sentiment implements lexicon-based Vietnamese sentiment analysis
// for building-materials reviews, including modifier handling (intensifiers,
// diminishers, negators) and aspect-level scoring.
package sentiment

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/vlxd-platform/market-intelligence/internal/intelligence/textproc"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// modifierWindow is how many tokens before a sentiment word are scanned for
// intensifiers, diminishers, and negators.
const modifierWindow = 2

const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2

	// noSignalConfidence is reported when the text contains no lexicon words.
	noSignalConfidence = 0.3
	baseConfidence     = 0.5
	confidencePerWord  = 0.1
	maxConfidence      = 0.95
)

// AspectResult is the aggregated sentiment for one review aspect.
type AspectResult struct {
	Sentiment common.SentimentLabel `json:"sentiment"`
	Score     float64               `json:"score"`
	Mentions  int                   `json:"mentions"`
}

// Keywords lists the lexicon terms that contributed to the score, split by
// the polarity they ended up with after negation.
type Keywords struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// Result is the outcome of analyzing one text.
type Result struct {
	Sentiment  common.SentimentLabel   `json:"sentiment"`
	Score      float64                 `json:"score"`
	Confidence float64                 `json:"confidence"`
	Aspects    map[string]AspectResult `json:"aspects,omitempty"`
	Keywords   Keywords                `json:"keywords"`
}

// ---------------------------------------------------------------------------
// Analyzer
// ---------------------------------------------------------------------------

// Analyzer scores Vietnamese text against the built-in sentiment lexicon.
// The zero value is not usable; construct with NewAnalyzer.
type Analyzer struct{}

// NewAnalyzer returns a lexicon-based sentiment analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

var sentenceSplitter = regexp.MustCompile(`[.!?,;]`)

// Analyze scores text and classifies it as POSITIVE, NEGATIVE, or NEUTRAL.
// When includeAspects is true, sentences mentioning a known aspect (delivery,
// quality, price, service, timing) are scored separately as well.
func (a *Analyzer) Analyze(text string, includeAspects bool) Result {
	tokens := textproc.Tokenize(text)

	var positiveScores, negativeScores []float64
	positiveSeen := map[string]struct{}{}
	negativeSeen := map[string]struct{}{}

	// Single-word lexicon entries.
	for i, token := range tokens {
		value, isPositive := wordSentiment(token)
		if value == 0 {
			continue
		}
		modifier := modifiersBefore(tokens, i)
		final := value * modifier

		if isPositive {
			if modifier < 0 {
				negativeScores = append(negativeScores, math.Abs(final))
				negativeSeen[token] = struct{}{}
			} else {
				positiveScores = append(positiveScores, final)
				positiveSeen[token] = struct{}{}
			}
		} else {
			if modifier < 0 {
				// Double negative reads as positive.
				positiveScores = append(positiveScores, math.Abs(final))
				positiveSeen[token] = struct{}{}
			} else {
				negativeScores = append(negativeScores, math.Abs(final))
				negativeSeen[token] = struct{}{}
			}
		}
	}

	// Compound (two-word) lexicon entries.
	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		value, isPositive := wordSentiment(bigram)
		if value == 0 {
			continue
		}
		modifier := modifiersBefore(tokens, i)
		final := value * modifier

		if isPositive {
			if modifier < 0 {
				negativeScores = append(negativeScores, math.Abs(final))
			} else {
				positiveScores = append(positiveScores, final)
				positiveSeen[bigram] = struct{}{}
			}
		} else {
			if modifier < 0 {
				positiveScores = append(positiveScores, math.Abs(final))
			} else {
				negativeScores = append(negativeScores, math.Abs(final))
				negativeSeen[bigram] = struct{}{}
			}
		}
	}

	totalPositive := sum(positiveScores)
	totalNegative := sum(negativeScores)

	var score, confidence float64
	if totalPositive+totalNegative == 0 {
		score = 0
		confidence = noSignalConfidence
	} else {
		score = (totalPositive - totalNegative) / (totalPositive + totalNegative)
		numWords := float64(len(positiveScores) + len(negativeScores))
		confidence = math.Min(baseConfidence+numWords*confidencePerWord, maxConfidence)
	}

	result := Result{
		Sentiment:  classify(score),
		Score:      round3(score),
		Confidence: round3(confidence),
		Keywords: Keywords{
			Positive: sortedKeys(positiveSeen),
			Negative: sortedKeys(negativeSeen),
		},
	}
	if includeAspects {
		result.Aspects = a.analyzeAspects(text)
	}
	return result
}

// analyzeAspects splits text into clauses, detects the aspect each clause
// talks about, and keeps a running average score per aspect.
func (a *Analyzer) analyzeAspects(text string) map[string]AspectResult {
	aspects := map[string]AspectResult{}

	for _, sentence := range sentenceSplitter.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		aspect := detectAspect(sentence)
		if aspect == "" {
			continue
		}

		clause := a.Analyze(sentence, false)
		existing, ok := aspects[aspect]
		if !ok {
			aspects[aspect] = AspectResult{
				Sentiment: clause.Sentiment,
				Score:     clause.Score,
				Mentions:  1,
			}
			continue
		}

		newScore := (existing.Score*float64(existing.Mentions) + clause.Score) /
			float64(existing.Mentions+1)
		aspects[aspect] = AspectResult{
			Sentiment: classify(newScore),
			Score:     round3(newScore),
			Mentions:  existing.Mentions + 1,
		}
	}

	return aspects
}

// modifiersBefore combines every modifier found in the window of tokens
// preceding position.  Negators flip the sign, intensifiers and diminishers
// scale the magnitude.
func modifiersBefore(tokens []string, position int) float64 {
	combined := 1.0
	start := position - modifierWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < position; i++ {
		if kind, value := modifierValue(tokens[i]); kind != modifierNone {
			combined *= value
		}
	}
	return combined
}

func classify(score float64) common.SentimentLabel {
	switch {
	case score > positiveThreshold:
		return common.SentimentPositive
	case score < negativeThreshold:
		return common.SentimentNegative
	default:
		return common.SentimentNeutral
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
