package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsConfig(origins ...string) CORSConfig {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins
	return cfg
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	handler := CORS(corsConfig("https://app.vlxd.vn"))(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/semantic", nil)
	req.Header.Set("Origin", "https://app.vlxd.vn")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.vlxd.vn", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_DisallowedOriginGetsNoHeaders(t *testing.T) {
	handler := CORS(corsConfig("https://app.vlxd.vn"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stats", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardOrigin(t *testing.T) {
	handler := CORS(corsConfig("*"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stats", nil)
	req.Header.Set("Origin", "https://anything.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-RateLimit-Limit")
}

func TestCORS_SubdomainWildcard(t *testing.T) {
	cfg := corsConfig("*.vlxd.vn")
	cfg.AllowWildcard = true
	handler := CORS(cfg)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stats", nil)
	req.Header.Set("Origin", "https://dashboard.vlxd.vn")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://dashboard.vlxd.vn", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginPassesThrough(t *testing.T) {
	handler := CORS(corsConfig("https://app.vlxd.vn"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
