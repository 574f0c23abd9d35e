package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, RateLimitInfo)
}

// RateLimitInfo is the limiter state exposed through response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64
	// BurstSize is the maximum burst above the sustained rate.
	BurstSize int
	// KeyFunc extracts the limiter key; nil means client IP.
	KeyFunc func(r *http.Request) string
	// SkipPaths bypass rate limiting entirely.
	SkipPaths []string
	// CleanupInterval is how often idle in-memory buckets are dropped.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		KeyFunc:           ClientIPKeyFunc,
		SkipPaths:         []string{"/health", "/ready", "/metrics"},
		CleanupInterval:   5 * time.Minute,
	}
}

// ClientIPKeyFunc keys the limiter by client IP, honouring proxy headers.
func ClientIPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// ---------------------------------------------------------------------------
// In-memory token bucket limiter
// ---------------------------------------------------------------------------

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// TokenBucketLimiter is the in-process limiter used when Redis is not
// configured. State is per instance, so limits multiply across replicas.
type TokenBucketLimiter struct {
	rate            float64
	burstSize       int
	buckets         map[string]*tokenBucket
	mu              sync.RWMutex
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewTokenBucketLimiter creates a token bucket limiter.
func NewTokenBucketLimiter(rate float64, burstSize int, cleanupInterval time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		rate:            rate,
		burstSize:       burstSize,
		buckets:         make(map[string]*tokenBucket),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow refills the key's bucket and takes one token if available.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, RateLimitInfo) {
	now := time.Now()

	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		bucket, exists = l.buckets[key]
		if !exists {
			bucket = &tokenBucket{tokens: float64(l.burstSize), lastRefill: now}
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens += elapsed * l.rate
	if bucket.tokens > float64(l.burstSize) {
		bucket.tokens = float64(l.burstSize)
	}
	bucket.lastRefill = now

	info := RateLimitInfo{
		Limit:   l.burstSize,
		ResetAt: now.Add(time.Duration(float64(time.Second) / l.rate)),
	}

	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		info.Remaining = int(bucket.tokens)
		return true, info
	}

	info.Remaining = 0
	return false, info
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets that have been idle and full for a whole interval.
func (l *TokenBucketLimiter) cleanup() {
	threshold := time.Now().Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		if bucket.lastRefill.Before(threshold) && bucket.tokens >= float64(l.burstSize)-1 {
			delete(l.buckets, key)
		}
		bucket.mu.Unlock()
	}
}

// Stop stops the background cleanup goroutine.
func (l *TokenBucketLimiter) Stop() {
	close(l.stopCleanup)
}

// BucketCount returns the number of active buckets.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// ---------------------------------------------------------------------------
// Redis fixed-window limiter
// ---------------------------------------------------------------------------

// WindowCounter is the slice of the cache the Redis limiter needs: an
// atomic increment whose key expires after the window.
type WindowCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisWindowLimiter is a fixed-window counter shared across replicas.
// On counter errors it fails open so a Redis outage never takes the API
// down with it.
type RedisWindowLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	logger  logging.Logger
}

// NewRedisWindowLimiter creates a fixed-window limiter allowing limit
// requests per key per window.
func NewRedisWindowLimiter(counter WindowCounter, limit int, window time.Duration, log logging.Logger) *RedisWindowLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisWindowLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		logger:  log.Named("rate-limiter"),
	}
}

// Allow increments the key's window counter and compares against the limit.
func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, RateLimitInfo) {
	windowStart := time.Now().Truncate(l.window)
	resetAt := windowStart.Add(l.window)

	counterKey := "ratelimit:" + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
	n, err := l.counter.IncrWithTTL(ctx, counterKey, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, allowing request", logging.Err(err))
		return true, RateLimitInfo{Limit: l.limit, Remaining: l.limit, ResetAt: resetAt}
	}

	remaining := l.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	info := RateLimitInfo{Limit: l.limit, Remaining: remaining, ResetAt: resetAt}
	return int(n) <= l.limit, info
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// RateLimit returns middleware enforcing the limiter and exposing its state
// through X-RateLimit-* headers.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKeyFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			allowed, info := limiter.Allow(r.Context(), keyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(info.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"COMMON_007","message":"too many requests"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
