package client

import (
	"context"
	"net/url"
	"strings"
)

// ---------------------------------------------------------------------------
// DTOs — request / response
// ---------------------------------------------------------------------------

// IndexProduct is one product document for indexing.
type IndexProduct struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	Brand          string  `json:"brand,omitempty"`
	Specifications string  `json:"specifications,omitempty"`
	Price          float64 `json:"price"`
	InStock        *bool   `json:"inStock,omitempty"`
	Image          string  `json:"image,omitempty"`
}

// SearchFilters narrows search candidates.
type SearchFilters struct {
	Category string  `json:"category,omitempty"`
	MinPrice float64 `json:"minPrice,omitempty"`
	MaxPrice float64 `json:"maxPrice,omitempty"`
	InStock  *bool   `json:"inStock,omitempty"`
}

// SearchRequest is a hybrid semantic search call.
type SearchRequest struct {
	Query          string         `json:"query"`
	Limit          int            `json:"limit,omitempty"`
	Filters        *SearchFilters `json:"filters,omitempty"`
	ExpandSynonyms *bool          `json:"expandSynonyms,omitempty"`
}

// ScoreBreakdown itemizes the hybrid score components.
type ScoreBreakdown struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Boost    float64 `json:"boost"`
}

// SearchHit is one ranked product hit.
type SearchHit struct {
	ProductID      string         `json:"productId"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Price          float64        `json:"price"`
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
	MatchedTerms   []string       `json:"matchedTerms"`
	Highlight      string         `json:"highlight"`
}

// CategoryFacet counts hits per category.
type CategoryFacet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceRangeFacet counts hits per price bucket.
type PriceRangeFacet struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Facets groups the filter options derived from the candidate set.
type Facets struct {
	Categories  []CategoryFacet   `json:"categories"`
	PriceRanges []PriceRangeFacet `json:"priceRanges"`
}

// SearchResult is the full search response.
type SearchResult struct {
	Query           string      `json:"query"`
	ExpandedQueries []string    `json:"expandedQueries,omitempty"`
	TotalResults    int         `json:"totalResults"`
	SearchType      string      `json:"searchType"`
	Results         []SearchHit `json:"results"`
	Suggestions     []string    `json:"suggestions"`
	Facets          Facets      `json:"facets"`
}

// IndexStats describes the search index.
type IndexStats struct {
	TotalProducts int `json:"totalProducts"`
	Dimension     int `json:"dimension"`
}

// IndexResult reports an indexing call.
type IndexResult struct {
	Indexed int        `json:"indexed"`
	Stats   IndexStats `json:"stats"`
}

// Suggestion is one typeahead entry.
type Suggestion struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Highlight string `json:"highlight"`
}

type indexRequest struct {
	Products []IndexProduct `json:"products"`
}

// ---------------------------------------------------------------------------
// SearchClient
// ---------------------------------------------------------------------------

// SearchClient provides access to the product search endpoints.
type SearchClient struct {
	client *Client
}

// Semantic performs a hybrid semantic product search.
// POST /api/v1/search/semantic
func (sc *SearchClient) Semantic(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, invalidArg("query is required")
	}

	var result SearchResult
	if err := sc.client.post(ctx, "/api/v1/search/semantic", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Index adds products to the search index.
// POST /api/v1/search/index
func (sc *SearchClient) Index(ctx context.Context, products []IndexProduct) (*IndexResult, error) {
	if len(products) == 0 {
		return nil, invalidArg("products list is required")
	}

	var result IndexResult
	if err := sc.client.post(ctx, "/api/v1/search/index", indexRequest{Products: products}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Suggest returns typeahead suggestions for a query prefix.
// GET /api/v1/search/suggest?q={query}
func (sc *SearchClient) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalidArg("query is required")
	}

	var result []Suggestion
	path := "/api/v1/search/suggest?q=" + url.QueryEscape(query)
	if err := sc.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Stats returns the current search index statistics.
// GET /api/v1/search/stats
func (sc *SearchClient) Stats(ctx context.Context) (*IndexStats, error) {
	var result IndexStats
	if err := sc.client.get(ctx, "/api/v1/search/stats", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
