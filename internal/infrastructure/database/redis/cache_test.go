package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

type trendSnapshot struct {
	ProductID string  `json:"productId"`
	Change    float64 `json:"change"`
}

func TestCacheSetGet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	in := trendSnapshot{ProductID: "prod_001", Change: 4.2}
	require.NoError(t, cache.Set(ctx, "trend:prod_001", in, time.Minute))

	var out trendSnapshot
	require.NoError(t, cache.Get(ctx, "trend:prod_001", &out))
	assert.Equal(t, in, out)
}

func TestCacheMiss(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())

	var out trendSnapshot
	err := cache.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheKeyPrefix(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", trendSnapshot{}, time.Minute))
	assert.True(t, mr.Exists("test:k"))
}

func TestCacheDeleteAndExists(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", trendSnapshot{}, time.Minute))
	ok, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, cache.Delete(ctx, "k"))
	ok, err = cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheGetOrSet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return trendSnapshot{ProductID: "prod_002", Change: -1.1}, nil
	}

	var out trendSnapshot
	require.NoError(t, cache.GetOrSet(ctx, "trend:prod_002", &out, time.Minute, loader))
	assert.Equal(t, "prod_002", out.ProductID)
	assert.Equal(t, 1, calls)

	// Second call is served from the cache.
	var again trendSnapshot
	require.NoError(t, cache.GetOrSet(ctx, "trend:prod_002", &again, time.Minute, loader))
	assert.Equal(t, out, again)
	assert.Equal(t, 1, calls)
}

func TestCacheGetOrSetNullResult(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	loader := func(context.Context) (interface{}, error) { return nil, nil }

	var out trendSnapshot
	err := cache.GetOrSet(ctx, "trend:ghost", &out, time.Minute, loader)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// The null marker short-circuits the next lookup too.
	err = cache.Get(ctx, "trend:ghost", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheDeleteByPrefix(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "trend:a", trendSnapshot{}, time.Minute))
	require.NoError(t, cache.Set(ctx, "trend:b", trendSnapshot{}, time.Minute))
	require.NoError(t, cache.Set(ctx, "search:a", trendSnapshot{}, time.Minute))

	deleted, err := cache.DeleteByPrefix(ctx, "trend:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	ok, err := cache.Exists(ctx, "search:a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheIncrWithTTL(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	n, err := cache.IncrWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = cache.IncrWithTTL(ctx, "rate:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Greater(t, mr.TTL("vlxd:cache:rate:1.2.3.4"), time.Duration(0))
}

func TestCacheGetWrapsBackendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &Client{rdb: db, logger: logging.NewNopLogger()}
	cache := NewCache(client, logging.NewNopLogger())

	mock.ExpectGet("vlxd:cache:k").SetErr(assert.AnError)

	var out trendSnapshot
	err := cache.Get(context.Background(), "k", &out)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}
