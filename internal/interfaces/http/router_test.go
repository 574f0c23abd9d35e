package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/http/handlers"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/http/middleware"
)

func newTestRouter() http.Handler {
	nop := logging.NewNopLogger()
	return NewRouter(RouterConfig{
		Churn:     handlers.NewChurnHandler(churn.NewService(churn.Deps{}), nop),
		Pricing:   handlers.NewPricingHandler(pricing.NewService(pricing.Deps{}), nop),
		Market:    handlers.NewMarketHandler(market.NewService(market.Deps{}), nop),
		Sentiment: handlers.NewSentimentHandler(sentiment.NewService(sentiment.Deps{}), nop),
		Health:    handlers.NewHealthHandler("test"),
	})
}

func TestNewRouter_HealthAndReady(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewRouter_RegisteredRoutes(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/churn/predict", `{"customerId":"cust_001"}`},
		{http.MethodPost, "/api/v1/pricing/recommend", `{"productId":"prod_001","basePrice":95000}`},
		{http.MethodGet, "/api/v1/pricing/elasticity", ""},
		{http.MethodPost, "/api/v1/market/trends", `{"priceHistory":[]}`},
		{http.MethodPost, "/api/v1/sentiment/analyze", `{"text":"giao hàng nhanh"}`},
	}

	for _, tc := range cases {
		var req *http.Request
		if tc.body != "" {
			req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(tc.method, tc.path, nil)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.NotEqual(t, http.StatusNotFound, rec.Code, "%s %s must be routed", tc.method, tc.path)
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, "%s %s must be routed", tc.method, tc.path)
	}
}

func TestNewRouter_NilHandlersLeaveRoutesUnregistered(t *testing.T) {
	router := NewRouter(RouterConfig{Health: handlers.NewHealthHandler("test")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/churn/predict", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouter_RateLimitMiddlewareApplied(t *testing.T) {
	limiter := middleware.NewTokenBucketLimiter(1, 1, 0)
	cfg := middleware.DefaultRateLimitConfig()

	nop := logging.NewNopLogger()
	router := NewRouter(RouterConfig{
		Pricing:   handlers.NewPricingHandler(pricing.NewService(pricing.Deps{}), nop),
		Health:    handlers.NewHealthHandler("test"),
		RateLimit: middleware.RateLimit(limiter, cfg),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/elasticity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Probe paths stay exempt even with the limiter exhausted.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
