// Package textproc provides Vietnamese-aware text normalisation shared by the
// similarity scorers, the sentiment analyzer, and the search pipeline.
package textproc

import (
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Stopwords
// ---------------------------------------------------------------------------

// vietnameseStopwords are common function words carrying no matching signal.
var vietnameseStopwords = map[string]struct{}{
	"và": {}, "hoặc": {}, "để": {}, "cho": {}, "của": {}, "có": {}, "là": {},
	"với": {}, "các": {}, "được": {}, "trong": {}, "này": {}, "đó": {},
	"khi": {}, "thì": {}, "mà": {}, "như": {}, "từ": {}, "về": {}, "đến": {},
	"cần": {}, "phải": {}, "nên": {}, "sẽ": {}, "đã": {}, "đang": {},
	"rồi": {}, "vì": {}, "nếu": {}, "tại": {},
}

// IsStopword reports whether token is a known Vietnamese stopword.
func IsStopword(token string) bool {
	_, ok := vietnameseStopwords[token]
	return ok
}

// ---------------------------------------------------------------------------
// Tokenization
// ---------------------------------------------------------------------------

// Normalize lower-cases text and replaces every non-letter, non-digit rune
// with a space.  Vietnamese diacritics are preserved.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize normalises text and splits it into tokens.  Stopwords are kept;
// use Preprocess when they should be removed.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// Preprocess normalises text, splits it into tokens, and drops stopwords.
func Preprocess(text string) []string {
	raw := Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if IsStopword(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Bigrams returns the adjacent-pair n-grams of tokens joined by a space.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// TermSet converts tokens into a membership set.
func TermSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// TermFrequencies counts the occurrences of each token.
func TermFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return freq
}
