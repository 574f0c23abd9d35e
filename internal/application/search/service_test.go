package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/intelligence/embedding"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(Deps{
		Embedder: embedding.NewHashEmbedder(128),
		Index:    vectorstore.NewMemoryIndex(),
	})
	require.NoError(t, err)
	return svc
}

func sampleProducts() []Product {
	return []Product{
		{
			ID:          "prod_001",
			Name:        "Xi măng chống thấm Sika",
			Category:    "xi_mang",
			Brand:       "Sika",
			Description: "Xi măng chống thấm cao cấp, dùng cho tường và sàn",
			Price:       125000,
		},
		{
			ID:          "prod_002",
			Name:        "Xi măng Holcim PCB40",
			Category:    "xi_mang",
			Brand:       "Holcim",
			Description: "Xi măng chất lượng cao cho xây dựng",
			Price:       95000,
		},
		{
			ID:          "prod_003",
			Name:        "Gạch samot chịu nhiệt",
			Category:    "gach",
			Brand:       "VLXD",
			Description: "Gạch chịu lửa, chịu nhiệt độ cao, dùng cho lò nung",
			Price:       85000,
		},
		{
			ID:          "prod_004",
			Name:        "Sơn chống thấm Jotun",
			Category:    "son",
			Brand:       "Jotun",
			Description: "Sơn ngoại thất chống thấm hiệu quả",
			Price:       350000,
		},
		{
			ID:          "prod_005",
			Name:        "Thép Hòa Phát D10",
			Category:    "thep",
			Brand:       "Hòa Phát",
			Description: "Thép xây dựng đường kính 10mm",
			Price:       18500,
		},
	}
}

func seededService(t *testing.T) Service {
	t.Helper()
	svc := newTestService(t)
	_, err := svc.IndexProducts(context.Background(), sampleProducts())
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(Deps{Index: vectorstore.NewMemoryIndex()})
	assert.Error(t, err)

	_, err = NewService(Deps{Embedder: embedding.NewHashEmbedder(64)})
	assert.Error(t, err)
}

func TestIndexProducts(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.IndexProducts(context.Background(), sampleProducts())

	require.NoError(t, err)
	assert.Equal(t, 5, res.Indexed)
	assert.Equal(t, 5, res.Stats.TotalProducts)
	assert.Equal(t, 128, res.Stats.Dimension)
}

type mockMirror struct {
	indexed int
	err     error
}

func (m *mockMirror) IndexProducts(_ context.Context, products []Product) error {
	m.indexed += len(products)
	return m.err
}

func TestIndexProducts_MirrorsToKeywordIndex(t *testing.T) {
	mirror := &mockMirror{}
	svc, err := NewService(Deps{
		Embedder: embedding.NewHashEmbedder(128),
		Index:    vectorstore.NewMemoryIndex(),
		Mirror:   mirror,
	})
	require.NoError(t, err)

	res, err := svc.IndexProducts(context.Background(), sampleProducts())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Indexed)
	assert.Equal(t, 5, mirror.indexed)
}

func TestIndexProducts_MirrorFailureIsBestEffort(t *testing.T) {
	mirror := &mockMirror{err: errors.New(errors.ErrCodeServiceUnavailable, "mirror down")}
	svc, err := NewService(Deps{
		Embedder: embedding.NewHashEmbedder(128),
		Index:    vectorstore.NewMemoryIndex(),
		Mirror:   mirror,
	})
	require.NoError(t, err)

	res, err := svc.IndexProducts(context.Background(), sampleProducts())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Indexed)
}

func TestIndexProducts_RequiresProducts(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.IndexProducts(context.Background(), nil)

	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Search(context.Background(), SearchRequest{Query: "  "})

	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyQuery))
}

func TestSearch_EmptyIndex(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), SearchRequest{Query: "xi măng"})

	require.NoError(t, err)
	assert.Zero(t, res.TotalResults)
	assert.Empty(t, res.Results)
}

func TestSearch_RanksExactProductFirst(t *testing.T) {
	svc := seededService(t)

	res, err := svc.Search(context.Background(), SearchRequest{
		Query: "xi măng chống thấm",
		Limit: 3,
	})

	require.NoError(t, err)
	require.NotEmpty(t, res.Results)

	top := res.Results[0]
	assert.Equal(t, "prod_001", top.ProductID)

	// Every query term occurs in the product text and the product name
	// contains the full query, is in stock, and sits in a popular category.
	assert.InDelta(t, 1.0, top.ScoreBreakdown.Keyword, 1e-9)
	assert.InDelta(t, 0.18, top.ScoreBreakdown.Boost, 1e-9)
	assert.ElementsMatch(t, []string{"xi", "măng", "chống", "thấm"}, top.MatchedTerms)
	assert.Contains(t, top.Highlight, "<em>")

	// The synonym table expands both "xi măng" and "chống thấm".
	assert.NotEmpty(t, res.ExpandedQueries)
	assert.Equal(t, "xi măng chống thấm", res.ExpandedQueries[0])
}

func TestSearch_ExpandedQueryMatchesSynonymText(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.IndexProducts(context.Background(), []Product{{
		ID:          "prod_cement",
		Name:        "Cement Portland",
		Description: "cement nhập khẩu chất lượng cao",
		Price:       90000,
	}})
	require.NoError(t, err)

	res, err := svc.Search(context.Background(), SearchRequest{Query: "xi măng"})

	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	// "xi măng" itself never occurs in the text, but the expanded query
	// "cement" does, so the keyword score comes from the synonym.
	assert.InDelta(t, 1.0, res.Results[0].ScoreBreakdown.Keyword, 1e-9)
	assert.Equal(t, []string{"cement"}, res.Results[0].MatchedTerms)
}

func TestSearch_SynonymExpansionCanBeDisabled(t *testing.T) {
	svc := seededService(t)
	off := false

	res, err := svc.Search(context.Background(), SearchRequest{
		Query:          "xi măng",
		ExpandSynonyms: &off,
	})

	require.NoError(t, err)
	assert.Nil(t, res.ExpandedQueries)
}

func TestSearch_CategoryFilter(t *testing.T) {
	svc := seededService(t)

	res, err := svc.Search(context.Background(), SearchRequest{
		Query:   "xi măng",
		Filters: &Filters{Category: "xi_mang"},
	})

	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.Equal(t, "xi_mang", r.Category)
	}
}

func TestSearch_PriceFilter(t *testing.T) {
	svc := seededService(t)

	res, err := svc.Search(context.Background(), SearchRequest{
		Query:   "xi măng",
		Filters: &Filters{Category: "xi_mang", MaxPrice: 100000},
	})

	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "prod_002", res.Results[0].ProductID)
}

func TestSearch_Facets(t *testing.T) {
	svc := seededService(t)

	res, err := svc.Search(context.Background(), SearchRequest{Query: "xi măng", Limit: 10})

	require.NoError(t, err)

	require.NotEmpty(t, res.Facets.Categories)
	assert.Equal(t, CategoryFacet{Name: "xi_mang", Count: 2}, res.Facets.Categories[0])

	// Three products under 100k, two between 100k and 500k.
	assert.Equal(t, []PriceRangeFacet{
		{Range: "0-100k", Count: 3},
		{Range: "100k-500k", Count: 2},
	}, res.Facets.PriceRanges)
}

func TestSearch_Suggestions(t *testing.T) {
	svc := seededService(t)

	res, err := svc.Search(context.Background(), SearchRequest{Query: "xi măng", Limit: 5})

	require.NoError(t, err)
	require.NotEmpty(t, res.Suggestions)
	assert.LessOrEqual(t, len(res.Suggestions), 5)

	var hasCategoryCombo bool
	for _, sug := range res.Suggestions {
		if strings.HasPrefix(sug, "xi măng ") {
			hasCategoryCombo = true
		}
	}
	assert.True(t, hasCategoryCombo)
}

func TestSuggest(t *testing.T) {
	svc := seededService(t)

	suggestions, err := svc.Suggest(context.Background(), "xi măng")

	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), maxSuggestions)
	for _, s := range suggestions {
		assert.Equal(t, "product", s.Type)
		assert.NotEmpty(t, s.Text)
	}
}

func TestSuggest_ShortQuery(t *testing.T) {
	svc := seededService(t)

	suggestions, err := svc.Suggest(context.Background(), "x")

	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestStats_EmptyIndex(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Zero(t, stats.TotalProducts)
	assert.Equal(t, 128, stats.Dimension)
}

func TestKeywordMatch(t *testing.T) {
	score, matched := keywordMatch("xi măng giá rẻ", "Xi măng Holcim giá tốt")
	assert.InDelta(t, 0.75, score, 1e-9)
	assert.ElementsMatch(t, []string{"xi", "măng", "giá"}, matched)

	// Duplicate query terms count once.
	score, _ = keywordMatch("xi xi măng", "xi măng")
	assert.InDelta(t, 1.0, score, 1e-9)

	score, matched = keywordMatch("", "anything")
	assert.Zero(t, score)
	assert.Empty(t, matched)
}

func TestHighlight(t *testing.T) {
	out := highlight("Xi măng Holcim", []string{"xi", "holcim"})
	assert.Equal(t, "<em>xi</em> măng <em>holcim</em>", out)

	assert.Equal(t, "plain", highlight("plain", nil))
}
