package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenBucketLimiter_BurstThenDeny(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow(context.Background(), "client-a")
		require.True(t, allowed, "request %d within burst", i)
	}

	allowed, info := l.Allow(context.Background(), "client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)

	// Independent keys keep their own budget.
	allowed, _ = l.Allow(context.Background(), "client-b")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_Refills(t *testing.T) {
	l := NewTokenBucketLimiter(1000, 1, 0)

	allowed, _ := l.Allow(context.Background(), "k")
	require.True(t, allowed)
	allowed, _ = l.Allow(context.Background(), "k")
	require.False(t, allowed)

	time.Sleep(5 * time.Millisecond)

	allowed, _ = l.Allow(context.Background(), "k")
	assert.True(t, allowed)
}

type stubCounter struct {
	counts map[string]int64
	err    error
}

func (s *stubCounter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], nil
}

func TestRedisWindowLimiter_EnforcesLimit(t *testing.T) {
	l := NewRedisWindowLimiter(&stubCounter{}, 2, time.Minute, logging.NewNopLogger())

	allowed, info := l.Allow(context.Background(), "10.0.0.1")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)

	allowed, info = l.Allow(context.Background(), "10.0.0.1")
	assert.True(t, allowed)
	assert.Equal(t, 0, info.Remaining)

	allowed, _ = l.Allow(context.Background(), "10.0.0.1")
	assert.False(t, allowed)
}

func TestRedisWindowLimiter_FailsOpen(t *testing.T) {
	l := NewRedisWindowLimiter(&stubCounter{err: errors.New(errors.ErrCodeCacheError, "redis down")},
		1, time.Minute, logging.NewNopLogger())

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow(context.Background(), "10.0.0.1")
		assert.True(t, allowed)
	}
}

func TestRateLimitMiddleware_DeniesWithHeaders(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1, 0)
	handler := RateLimit(limiter, DefaultRateLimitConfig())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/elasticity", nil)
	req.RemoteAddr = "10.1.1.1:4000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRateLimitMiddleware_SkipsConfiguredPaths(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1, 0)
	handler := RateLimit(limiter, DefaultRateLimitConfig())(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIPKeyFunc_PrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	assert.Equal(t, "127.0.0.1:9999", ClientIPKeyFunc(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIPKeyFunc(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", ClientIPKeyFunc(req))
}
