package embedding

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"strings"
)

// ---------------------------------------------------------------------------
// HashEmbedder
// ---------------------------------------------------------------------------

// HashEmbedder produces deterministic pseudo-embeddings from word hashes.
// Each word spreads weight across 10 dimensions selected by its MD5 hash,
// scaled by 1/(position+1) so earlier words dominate, and the final vector is
// L2-normalised.  These are not semantic embeddings, but they are stable,
// cheap, and give usable nearest-neighbour behaviour for overlapping text.
type HashEmbedder struct {
	dimension int
}

// wordSpread is the number of dimensions each word contributes to.
const wordSpread = 10

// NewHashEmbedder constructs a HashEmbedder with the given vector width.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension < 1 {
		dimension = 768
	}
	return &HashEmbedder{dimension: dimension}
}

func (e *HashEmbedder) Dimension() int { return e.dimension }

// Embed implements Embedder.  It never fails; the error return satisfies the
// interface for providers that can.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dimension)

	words := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	for i, word := range words {
		h := wordHash(word)
		spread := wordSpread
		if spread > e.dimension {
			spread = e.dimension
		}
		for j := 0; j < spread; j++ {
			dim := (h + uint64(j)) % uint64(e.dimension)
			vec[dim] += 1.0 / float64(i+1)
		}
	}

	l2Normalize(vec)
	return vec, nil
}

// EmbedBatch implements Embedder.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// wordHash folds the MD5 digest of word into an unsigned integer.
func wordHash(word string) uint64 {
	sum := md5.Sum([]byte(word))
	return binary.BigEndian.Uint64(sum[:8])
}
