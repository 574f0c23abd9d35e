package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	apperrors "github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Mock SDK client
// ---------------------------------------------------------------------------

type mockMilvus struct {
	client.Client // embed interface, override what the index uses

	hasCollectionFunc func(ctx context.Context, name string) (bool, error)
	createdSchema     *entity.Schema
	createdIndexField string
	loaded            []string
	upsertFunc        func(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error)
	deleteExpr        string
	searchFunc        func(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	stats             map[string]string
	statsErr          error
}

func (m *mockMilvus) HasCollection(ctx context.Context, name string) (bool, error) {
	if m.hasCollectionFunc != nil {
		return m.hasCollectionFunc(ctx, name)
	}
	return false, nil
}

func (m *mockMilvus) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	m.createdSchema = schema
	return nil
}

func (m *mockMilvus) CreateIndex(_ context.Context, _, fieldName string, _ entity.Index, _ bool, _ ...client.IndexOption) error {
	m.createdIndexField = fieldName
	return nil
}

func (m *mockMilvus) LoadCollection(_ context.Context, name string, _ bool, _ ...client.LoadCollectionOption) error {
	m.loaded = append(m.loaded, name)
	return nil
}

func (m *mockMilvus) Upsert(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, collName, partitionName, columns...)
	}
	return entity.NewColumnVarChar("id", nil), nil
}

func (m *mockMilvus) Delete(_ context.Context, _, _ string, expr string) error {
	m.deleteExpr = expr
	return nil
}

func (m *mockMilvus) Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, collName, partitions, expr, outputFields, vectors, vectorField, metricType, topK, sp, opts...)
	}
	return nil, nil
}

func (m *mockMilvus) GetCollectionStatistics(context.Context, string) (map[string]string, error) {
	return m.stats, m.statsErr
}

func newTestIndex(mock client.Client) (*ProductIndex, *Client) {
	c := &Client{mc: mock, logger: logging.NewNopLogger(), cancel: func() {}}
	idx := NewProductIndex(c, IndexConfig{Dimension: 3}, logging.NewNopLogger())
	return idx, c
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEnsureCollectionCreatesSchema(t *testing.T) {
	mock := &mockMilvus{}
	idx, _ := newTestIndex(mock)

	require.NoError(t, idx.EnsureCollection(context.Background()))
	require.NotNil(t, mock.createdSchema)
	assert.Equal(t, "products", mock.createdSchema.CollectionName)
	assert.Len(t, mock.createdSchema.Fields, 6)
	assert.Equal(t, "vector", mock.createdIndexField)
	assert.Equal(t, []string{"products"}, mock.loaded)
}

func TestEnsureCollectionExistingOnlyLoads(t *testing.T) {
	mock := &mockMilvus{
		hasCollectionFunc: func(context.Context, string) (bool, error) { return true, nil },
	}
	idx, _ := newTestIndex(mock)

	require.NoError(t, idx.EnsureCollection(context.Background()))
	assert.Nil(t, mock.createdSchema)
	assert.Equal(t, []string{"products"}, mock.loaded)
}

func TestUpsertBuildsColumns(t *testing.T) {
	var gotColumns []entity.Column
	mock := &mockMilvus{
		upsertFunc: func(_ context.Context, collName, _ string, columns ...entity.Column) (entity.Column, error) {
			assert.Equal(t, "products", collName)
			gotColumns = columns
			return entity.NewColumnVarChar("id", []string{"prod_001"}), nil
		},
	}
	idx, _ := newTestIndex(mock)

	err := idx.Upsert(context.Background(), []vectorstore.Document{{
		ID:     "prod_001",
		Vector: []float64{0.1, 0.2, 0.3},
		Metadata: map[string]interface{}{
			"category": "Xi măng",
			"price":    95000.0,
			"inStock":  true,
		},
	}})
	require.NoError(t, err)
	require.Len(t, gotColumns, 6)

	names := make([]string, len(gotColumns))
	for i, col := range gotColumns {
		names[i] = col.Name()
	}
	assert.Equal(t, []string{"id", "vector", "category", "price", "in_stock", "metadata"}, names)
	assert.Equal(t, []string{"Xi măng"}, gotColumns[2].(*entity.ColumnVarChar).Data())
	assert.Equal(t, []float64{95000}, gotColumns[3].(*entity.ColumnDouble).Data())
}

func TestUpsertValidation(t *testing.T) {
	idx, _ := newTestIndex(&mockMilvus{})

	// Empty batch is a no-op.
	require.NoError(t, idx.Upsert(context.Background(), nil))

	err := idx.Upsert(context.Background(), []vectorstore.Document{{Vector: []float64{0.1, 0.2, 0.3}}})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	err = idx.Upsert(context.Background(), []vectorstore.Document{{ID: "p1", Vector: []float64{0.1}}})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestDeleteBuildsExpression(t *testing.T) {
	mock := &mockMilvus{}
	idx, _ := newTestIndex(mock)

	require.NoError(t, idx.Delete(context.Background(), []string{"prod_001", "prod_002"}))
	assert.Equal(t, `id in ["prod_001","prod_002"]`, mock.deleteExpr)

	mock.deleteExpr = ""
	require.NoError(t, idx.Delete(context.Background(), nil))
	assert.Empty(t, mock.deleteExpr)
}

func TestSearchConvertsResults(t *testing.T) {
	var gotExpr string
	mock := &mockMilvus{
		searchFunc: func(_ context.Context, _ string, _ []string, expr string, _ []string, _ []entity.Vector, _ string, _ entity.MetricType, topK int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
			gotExpr = expr
			assert.Equal(t, 5, topK)
			return []client.SearchResult{{
				ResultCount: 2,
				IDs:         entity.NewColumnVarChar("id", []string{"prod_001", "prod_002"}),
				Scores:      []float32{0.92, 0.81},
				Fields: client.ResultSet{entity.NewColumnVarChar("metadata",
					[]string{`{"name":"Xi măng PCB40","price":95000}`, `{"name":"Cát vàng"}`})},
			}}, nil
		},
	}
	idx, _ := newTestIndex(mock)

	inStock := true
	matches, err := idx.Search(context.Background(), []float64{0.1, 0.2, 0.3}, 5, &vectorstore.Filter{
		Category: "Xi măng",
		MinPrice: 50000,
		InStock:  &inStock,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "prod_001", matches[0].ID)
	assert.InDelta(t, 0.92, matches[0].Score, 1e-6)
	assert.Equal(t, "Xi măng PCB40", matches[0].Metadata["name"])
	assert.Equal(t, `category == "Xi măng" && price >= 50000 && in_stock == true`, gotExpr)
}

func TestSearchValidation(t *testing.T) {
	idx, _ := newTestIndex(&mockMilvus{})

	_, err := idx.Search(context.Background(), []float64{0.1}, 5, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = idx.Search(context.Background(), []float64{0.1, 0.2, 0.3}, 0, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestCount(t *testing.T) {
	mock := &mockMilvus{stats: map[string]string{"row_count": "42"}}
	idx, _ := newTestIndex(mock)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)

	mock.stats = map[string]string{"row_count": "not-a-number"}
	_, err = idx.Count(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))
}

func TestBuildFilterExpr(t *testing.T) {
	assert.Empty(t, buildFilterExpr(nil))
	assert.Empty(t, buildFilterExpr(&vectorstore.Filter{}))
	assert.Equal(t, "price <= 200000", buildFilterExpr(&vectorstore.Filter{MaxPrice: 200000}))

	inStock := false
	assert.Equal(t, "in_stock == false", buildFilterExpr(&vectorstore.Filter{InStock: &inStock}))
}
