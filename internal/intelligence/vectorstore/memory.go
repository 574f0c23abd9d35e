package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/vlxd-platform/market-intelligence/internal/intelligence/embedding"
)

// ---------------------------------------------------------------------------
// In-memory index
// ---------------------------------------------------------------------------

// MemoryIndex is a map-backed VectorIndex ranked by brute-force cosine
// similarity.  Writers are serialized by a RW mutex; reads take a snapshot
// under the read lock and rank outside it.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

// Upsert inserts or replaces documents by ID.  Vectors and metadata are
// copied so callers can reuse their slices.
func (m *MemoryIndex) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		stored := Document{
			ID:       doc.ID,
			Vector:   append([]float64(nil), doc.Vector...),
			Metadata: make(map[string]interface{}, len(doc.Metadata)),
		}
		for k, v := range doc.Metadata {
			stored.Metadata[k] = v
		}
		m.docs[doc.ID] = stored
	}
	return nil
}

// Delete removes documents by ID.  Unknown IDs are ignored.
func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

// Search returns the topK documents closest to the query vector, after
// applying the filter.  Results are ordered by descending score with ID as
// the tie-breaker so repeated searches are stable.
func (m *MemoryIndex) Search(_ context.Context, vector []float64, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	candidates := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if MatchesFilter(doc.Metadata, filter) {
			candidates = append(candidates, doc)
		}
	}
	m.mu.RUnlock()

	matches := make([]Match, 0, len(candidates))
	for _, doc := range candidates {
		matches = append(matches, Match{
			ID:       doc.ID,
			Score:    embedding.CosineSimilarity(vector, doc.Vector),
			Metadata: doc.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of indexed documents.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}
