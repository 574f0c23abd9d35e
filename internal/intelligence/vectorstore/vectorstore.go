// Package vectorstore provides vector similarity indexes for product search.
// The in-memory index is the default; a Milvus-backed implementation is
// available when external infrastructure is configured.
package vectorstore

import (
	"context"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Document is an indexed item: the embedding vector plus the metadata used
// for filtering and result assembly.
type Document struct {
	ID       string                 `json:"id"`
	Vector   []float64              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Filter narrows candidate documents before similarity ranking.  Zero values
// mean "no constraint" for that field.
type Filter struct {
	Category string
	MinPrice float64
	MaxPrice float64
	InStock  *bool
}

// Match is one ranked search hit.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// VectorIndex stores embedding vectors and returns the nearest documents to
// a query vector.  Implementations must be safe for concurrent use.
type VectorIndex interface {
	Upsert(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids []string) error
	Search(ctx context.Context, vector []float64, topK int, filter *Filter) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// MatchesFilter reports whether the metadata passes the filter.  Price and
// stock fields are read from the metadata keys "price" and "inStock".
func MatchesFilter(meta map[string]interface{}, filter *Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Category != "" {
		cat, _ := meta["category"].(string)
		if cat != filter.Category {
			return false
		}
	}
	if filter.MinPrice > 0 || filter.MaxPrice > 0 {
		price := metaFloat(meta, "price")
		if filter.MinPrice > 0 && price < filter.MinPrice {
			return false
		}
		if filter.MaxPrice > 0 && price > filter.MaxPrice {
			return false
		}
	}
	if filter.InStock != nil {
		inStock, _ := meta["inStock"].(bool)
		if inStock != *filter.InStock {
			return false
		}
	}
	return true
}

func metaFloat(meta map[string]interface{}, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
