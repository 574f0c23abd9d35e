package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	err := idx.Upsert(context.Background(), []Document{
		{
			ID:     "p1",
			Vector: []float64{1, 0, 0},
			Metadata: map[string]interface{}{
				"name": "Xi măng PCB 40", "category": "xi_mang",
				"price": 95000.0, "inStock": true,
			},
		},
		{
			ID:     "p2",
			Vector: []float64{0.9, 0.1, 0},
			Metadata: map[string]interface{}{
				"name": "Xi măng trắng", "category": "xi_mang",
				"price": 150000.0, "inStock": false,
			},
		},
		{
			ID:     "p3",
			Vector: []float64{0, 1, 0},
			Metadata: map[string]interface{}{
				"name": "Thép phi 10", "category": "thep",
				"price": 185000.0, "inStock": true,
			},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestMemoryIndex_UpsertAndCount(t *testing.T) {
	idx := seedIndex(t)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryIndex_UpsertReplacesByID(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Document{{
		ID:       "p1",
		Vector:   []float64{0, 0, 1},
		Metadata: map[string]interface{}{"category": "gach"},
	}})
	require.NoError(t, err)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	matches, err := idx.Search(ctx, []float64{0, 0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].ID)
}

func TestMemoryIndex_Delete(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Delete(ctx, []string{"p2", "missing"}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryIndex_Search_RanksByCosine(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "p1", matches[0].ID)
	assert.Equal(t, "p2", matches[1].ID)
	assert.Equal(t, "p3", matches[2].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Greater(t, matches[1].Score, matches[2].Score)
}

func TestMemoryIndex_Search_TopKLimits(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMemoryIndex_Search_CategoryFilter(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 10, &Filter{Category: "thep"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p3", matches[0].ID)
}

func TestMemoryIndex_Search_PriceFilter(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 10,
		&Filter{MinPrice: 100000, MaxPrice: 200000})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "p2", matches[0].ID)
	assert.Equal(t, "p3", matches[1].ID)
}

func TestMemoryIndex_Search_InStockFilter(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 10,
		&Filter{InStock: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, "p2", m.ID)
	}
}

func TestMemoryIndex_Search_ZeroTopK(t *testing.T) {
	idx := seedIndex(t)

	matches, err := idx.Search(context.Background(), []float64{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryIndex_ConcurrentAccess(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := Document{
				ID:       fmt.Sprintf("doc-%d", i),
				Vector:   []float64{float64(i), 1, 0},
				Metadata: map[string]interface{}{"category": "xi_mang"},
			}
			assert.NoError(t, idx.Upsert(ctx, []Document{doc}))
			_, err := idx.Search(ctx, []float64{1, 1, 0}, 5, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
