// Package search implements hybrid semantic product search: embedding
// similarity blended with keyword overlap and metadata boosts, plus
// synonym-based query expansion, suggestions, and facet generation.
package search

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/embedding"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/textproc"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// Product is one item to index.
type Product struct {
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

// Filters narrows search candidates.
type Filters struct {
	Category string  `json:"category,omitempty"`
	MinPrice float64 `json:"minPrice,omitempty"`
	MaxPrice float64 `json:"maxPrice,omitempty"`
	InStock  *bool   `json:"inStock,omitempty"`
}

// SearchRequest is a hybrid search call.
type SearchRequest struct {
	Query          string   `json:"query"`
	Limit          int      `json:"limit,omitempty"`
	Filters        *Filters `json:"filters,omitempty"`
	ExpandSynonyms *bool    `json:"expandSynonyms,omitempty"`
}

// ScoreBreakdown itemizes the hybrid score components.
type ScoreBreakdown struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Boost    float64 `json:"boost"`
}

// Result is one ranked product hit.
type Result struct {
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
	Query           string   `json:"query"`
	ExpandedQueries []string `json:"expandedQueries,omitempty"`
	TotalResults    int      `json:"totalResults"`
	SearchType      string   `json:"searchType"`
	Results         []Result `json:"results"`
	Suggestions     []string `json:"suggestions"`
	Facets          Facets   `json:"facets"`
}

// Stats describes the search index.
type Stats struct {
	TotalProducts int `json:"totalProducts"`
	Dimension     int `json:"dimension"`
}

// IndexResult reports an indexing call.
type IndexResult struct {
	Indexed int   `json:"indexed"`
	Stats   Stats `json:"stats"`
}

// Suggestion is one typeahead entry.
type Suggestion struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Highlight string `json:"highlight"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service is the semantic product search application service.
type Service interface {
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	IndexProducts(ctx context.Context, products []Product) (IndexResult, error)
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
	Stats(ctx context.Context) (Stats, error)
}

// KeywordIndexer mirrors indexed products into an external keyword search
// backend. Mirroring is best effort: a failure never fails vector indexing.
type KeywordIndexer interface {
	IndexProducts(ctx context.Context, products []Product) error
}

// Deps holds all dependencies.
type Deps struct {
	Embedder embedding.Embedder
	Index    vectorstore.VectorIndex
	// Synonyms defaults to the built-in construction materials table.
	Synonyms textproc.SynonymTable
	// Mirror is optional; when set, indexed products are copied into the
	// external keyword index as well.
	Mirror KeywordIndexer
	Logger logging.Logger
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// Hybrid score weights.
const (
	weightSemantic = 0.60
	weightKeyword  = 0.25
	weightBoost    = 0.15

	defaultLimit = 20

	// candidateMultiplier widens the vector search so keyword and boost
	// scores can rerank beyond the cut line.
	candidateMultiplier = 2

	minSuggestQuery = 2
	maxSuggestions  = 5
)

// Boost factors.
const (
	boostNameMatch       = 0.10
	boostInStock         = 0.05
	boostHasImage        = 0.02
	boostPopularCategory = 0.03
)

// popularCategories get a small ranking boost.
var popularCategories = map[string]struct{}{
	"xi_mang": {},
	"thep":    {},
	"gach":    {},
}

// priceRangeOrder fixes the bucket order in facets.
var priceRangeOrder = []string{"0-100k", "100k-500k", "500k-1M", "1M+"}

type serviceImpl struct {
	embedder embedding.Embedder
	index    vectorstore.VectorIndex
	synonyms textproc.SynonymTable
	mirror   KeywordIndexer
	logger   logging.Logger
}

// NewService creates a search Service.
func NewService(deps Deps) (Service, error) {
	if deps.Embedder == nil {
		return nil, errors.New(errors.ErrCodeInternal, "search: embedder is required")
	}
	if deps.Index == nil {
		return nil, errors.New(errors.ErrCodeInternal, "search: vector index is required")
	}
	synonyms := deps.Synonyms
	if synonyms == nil {
		synonyms = textproc.DefaultSynonyms
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		embedder: deps.Embedder,
		index:    deps.Index,
		synonyms: synonyms,
		mirror:   deps.Mirror,
		logger:   logger.Named("search"),
	}, nil
}

func (s *serviceImpl) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return SearchResult{}, errors.New(errors.ErrCodeEmptyQuery, "search query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	queries := []string{query}
	if req.ExpandSynonyms == nil || *req.ExpandSynonyms {
		queries = s.synonyms.ExpandQuery(query)
	}

	vector, err := s.embedder.Embed(ctx, queries[0])
	if err != nil {
		return SearchResult{}, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "query embedding failed")
	}

	candidates, err := s.index.Search(ctx, vector, limit*candidateMultiplier, toStoreFilter(req.Filters))
	if err != nil {
		return SearchResult{}, errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "vector search failed")
	}

	out := SearchResult{
		Query:       query,
		SearchType:  "semantic",
		Results:     []Result{},
		Suggestions: []string{},
	}
	if len(queries) > 1 {
		out.ExpandedQueries = queries
	}
	if len(candidates) == 0 {
		return out, nil
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		text := metaString(c.Metadata, "searchable_text")
		if text == "" {
			text = metaString(c.Metadata, "name")
		}

		keywordScore, matched := keywordMatch(query, text)
		for _, expanded := range queries[1:] {
			expScore, expMatched := keywordMatch(expanded, text)
			if expScore > keywordScore {
				keywordScore = expScore
				matched = append(matched, expMatched...)
			}
		}
		matched = dedupeSorted(matched)

		boost := boostFor(c.Metadata, query)
		hybrid := weightSemantic*c.Score + weightKeyword*keywordScore + weightBoost*boost

		name := metaString(c.Metadata, "name")
		results = append(results, Result{
			ProductID: c.ID,
			Name:      name,
			Category:  metaString(c.Metadata, "category"),
			Price:     metaFloat(c.Metadata, "price"),
			Score:     round3(hybrid),
			ScoreBreakdown: ScoreBreakdown{
				Semantic: round3(c.Score),
				Keyword:  round3(keywordScore),
				Boost:    round3(boost),
			},
			MatchedTerms: matched,
			Highlight:    highlight(name, matched),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	out.Results = results
	out.TotalResults = len(results)
	out.Suggestions = buildSuggestions(query, results)
	out.Facets = buildFacets(candidates)

	s.logger.Info("semantic search",
		logging.String("query", query),
		logging.Int("candidates", len(candidates)),
		logging.Int("results", len(results)))
	return out, nil
}

func (s *serviceImpl) IndexProducts(ctx context.Context, products []Product) (IndexResult, error) {
	if len(products) == 0 {
		return IndexResult{}, errors.NewValidationError("products", "at least one product is required")
	}

	docs := make([]vectorstore.Document, 0, len(products))
	for _, p := range products {
		text := searchableText(p)
		vector, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return IndexResult{}, errors.Wrap(err, errors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedding product %q failed", p.ID))
		}

		inStock := true
		if p.InStock != nil {
			inStock = *p.InStock
		}
		docs = append(docs, vectorstore.Document{
			ID:     p.ID,
			Vector: vector,
			Metadata: map[string]interface{}{
				"name":            p.Name,
				"category":        p.Category,
				"brand":           p.Brand,
				"price":           p.Price,
				"inStock":         inStock,
				"image":           p.Image,
				"searchable_text": text,
			},
		})
	}

	if err := s.index.Upsert(ctx, docs); err != nil {
		return IndexResult{}, errors.Wrap(err, errors.ErrCodeIndexingFailed, "indexing products failed")
	}

	if s.mirror != nil {
		if err := s.mirror.IndexProducts(ctx, products); err != nil {
			s.logger.Warn("keyword mirror indexing failed", logging.Err(err))
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return IndexResult{}, err
	}

	s.logger.Info("products indexed", logging.Int("count", len(docs)))
	return IndexResult{Indexed: len(docs), Stats: stats}, nil
}

func (s *serviceImpl) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if len([]rune(strings.TrimSpace(query))) < minSuggestQuery {
		return []Suggestion{}, nil
	}

	res, err := s.Search(ctx, SearchRequest{Query: query, Limit: maxSuggestions})
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(res.Results))
	for _, r := range res.Results {
		suggestions = append(suggestions, Suggestion{
			Type:      "product",
			Text:      r.Name,
			Highlight: r.Highlight,
		})
	}
	return suggestions, nil
}

func (s *serviceImpl) Stats(ctx context.Context) (Stats, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "index stats failed")
	}
	return Stats{TotalProducts: count, Dimension: s.embedder.Dimension()}, nil
}

// ---------------------------------------------------------------------------
// Scoring helpers
// ---------------------------------------------------------------------------

// keywordMatch scores how many query terms occur in text.
func keywordMatch(query, text string) (float64, []string) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0, nil
	}
	textLower := strings.ToLower(text)

	seen := map[string]struct{}{}
	var matched []string
	unique := 0
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		unique++
		if strings.Contains(textLower, term) {
			matched = append(matched, term)
		}
	}
	return float64(len(matched)) / float64(unique), matched
}

// boostFor computes the metadata boost component.
func boostFor(meta map[string]interface{}, query string) float64 {
	boost := 0.0
	if strings.Contains(strings.ToLower(metaString(meta, "name")), strings.ToLower(query)) {
		boost += boostNameMatch
	}
	inStock, ok := meta["inStock"].(bool)
	if !ok || inStock {
		boost += boostInStock
	}
	if metaString(meta, "image") != "" {
		boost += boostHasImage
	}
	if _, popular := popularCategories[strings.ToLower(metaString(meta, "category"))]; popular {
		boost += boostPopularCategory
	}
	return boost
}

// highlight wraps every matched term occurring in text with <em> tags.
func highlight(text string, matched []string) string {
	result := text
	for _, term := range matched {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		result = pattern.ReplaceAllString(result, "<em>"+term+"</em>")
	}
	return result
}

// buildSuggestions offers the top result names plus query-category combos.
func buildSuggestions(query string, results []Result) []string {
	suggestions := []string{}
	queryLower := strings.ToLower(query)

	for i, r := range results {
		if i >= 3 {
			break
		}
		if name := strings.ToLower(r.Name); name != queryLower {
			suggestions = append(suggestions, name)
		}
	}

	seen := map[string]struct{}{}
	added := 0
	for i, r := range results {
		if i >= 5 || added >= 2 {
			break
		}
		if r.Category == "" {
			continue
		}
		if _, dup := seen[r.Category]; dup {
			continue
		}
		seen[r.Category] = struct{}{}
		suggestions = append(suggestions, query+" "+r.Category)
		added++
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// buildFacets derives category and price-bucket counts from the candidate
// set, before the final cut.
func buildFacets(candidates []vectorstore.Match) Facets {
	categories := map[string]int{}
	buckets := map[string]int{}

	for _, c := range candidates {
		cat := metaString(c.Metadata, "category")
		if cat == "" {
			cat = "Khác"
		}
		categories[cat]++

		price := metaFloat(c.Metadata, "price")
		switch {
		case price < 100_000:
			buckets["0-100k"]++
		case price < 500_000:
			buckets["100k-500k"]++
		case price < 1_000_000:
			buckets["500k-1M"]++
		default:
			buckets["1M+"]++
		}
	}

	catFacets := make([]CategoryFacet, 0, len(categories))
	for name, count := range categories {
		catFacets = append(catFacets, CategoryFacet{Name: name, Count: count})
	}
	sort.Slice(catFacets, func(i, j int) bool {
		if catFacets[i].Count != catFacets[j].Count {
			return catFacets[i].Count > catFacets[j].Count
		}
		return catFacets[i].Name < catFacets[j].Name
	})

	priceFacets := make([]PriceRangeFacet, 0, len(buckets))
	for _, bucket := range priceRangeOrder {
		if count := buckets[bucket]; count > 0 {
			priceFacets = append(priceFacets, PriceRangeFacet{Range: bucket, Count: count})
		}
	}

	return Facets{Categories: catFacets, PriceRanges: priceFacets}
}

// searchableText concatenates the indexed fields of a product.
func searchableText(p Product) string {
	parts := make([]string, 0, 5)
	for _, part := range []string{p.Name, p.Category, p.Brand, p.Description, p.Specifications} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func toStoreFilter(f *Filters) *vectorstore.Filter {
	if f == nil {
		return nil
	}
	return &vectorstore.Filter{
		Category: f.Category,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		InStock:  f.InStock,
	}
}

func metaString(meta map[string]interface{}, key string) string {
	v, _ := meta[key].(string)
	return v
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

func dedupeSorted(terms []string) []string {
	if len(terms) == 0 {
		return []string{}
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
