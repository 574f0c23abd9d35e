package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okEnvelope(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	require.NoError(t, err)
}

func errEnvelope(t *testing.T, w http.ResponseWriter, status int, code, message string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
	require.NoError(t, err)
}

func TestNewClient_ValidatesBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestClient_UnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/pricing/elasticity", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		okEnvelope(t, w, map[string]float64{"Xi măng": -1.2})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	table, err := c.Pricing().Elasticity(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, -1.2, table["Xi măng"], 1e-9)
}

func TestClient_MapsErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errEnvelope(t, w, http.StatusNotFound, "FORECAST_001", "no trained model for product")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)

	_, err = c.Forecast().Predict(context.Background(), "prod_404", 7)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "FORECAST_001", apiErr.Code)
	assert.Equal(t, "no trained model for product", apiErr.Message)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			errEnvelope(t, w, http.StatusInternalServerError, "COMMON_001", "internal error")
			return
		}
		okEnvelope(t, w, ChurnPrediction{CustomerID: "cust_001", ChurnProbability: 0.42})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(2), WithRetryWait(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	pred, err := c.Churn().Predict(context.Background(), &CustomerFeatures{CustomerID: "cust_001"})
	require.NoError(t, err)
	assert.Equal(t, "cust_001", pred.CustomerID)
	assert.InDelta(t, 0.42, pred.ChurnProbability, 1e-9)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		errEnvelope(t, w, http.StatusUnprocessableEntity, "COMMON_010", "validation failed")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(3), WithRetryWait(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Churn().Predict(context.Background(), &CustomerFeatures{CustomerID: "cust_001"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_ValidatesArguments(t *testing.T) {
	c, err := NewClient("http://localhost:9")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = c.Churn().Predict(ctx, nil)
	assert.Error(t, err)
	_, err = c.Churn().AtRisk(ctx, &AtRiskRequest{})
	assert.Error(t, err)
	_, err = c.Pricing().Recommend(ctx, &PricingProduct{}, nil)
	assert.Error(t, err)
	_, err = c.Search().Semantic(ctx, &SearchRequest{Query: "   "})
	assert.Error(t, err)
	_, err = c.Search().Index(ctx, nil)
	assert.Error(t, err)
	_, err = c.Forecast().Train(ctx, &TrainRequest{})
	assert.Error(t, err)
	_, err = c.Forecast().Predict(ctx, "", 7)
	assert.Error(t, err)
}

func TestSearchClient_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search/index":
			var req indexRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			okEnvelope(t, w, IndexResult{
				Indexed: len(req.Products),
				Stats:   IndexStats{TotalProducts: len(req.Products), Dimension: 128},
			})
		case "/api/v1/search/semantic":
			okEnvelope(t, w, SearchResult{
				Query:        "xi măng",
				TotalResults: 1,
				SearchType:   "hybrid",
				Results:      []SearchHit{{ProductID: "prod_001", Name: "Xi măng PCB40", Score: 0.91}},
			})
		case "/api/v1/search/suggest":
			assert.Equal(t, "xi m", r.URL.Query().Get("q"))
			okEnvelope(t, w, []Suggestion{{Type: "product", Text: "Xi măng PCB40"}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	indexed, err := c.Search().Index(ctx, []IndexProduct{{ID: "prod_001", Name: "Xi măng PCB40", Price: 95000}})
	require.NoError(t, err)
	assert.Equal(t, 1, indexed.Indexed)

	res, err := c.Search().Semantic(ctx, &SearchRequest{Query: "xi măng"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "prod_001", res.Results[0].ProductID)

	suggestions, err := c.Search().Suggest(ctx, "xi m")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Xi măng PCB40", suggestions[0].Text)
}

func TestForecastClient_PredictQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/forecast/predict", r.URL.Path)
		assert.Equal(t, "prod_001", r.URL.Query().Get("productId"))
		assert.Equal(t, "14", r.URL.Query().Get("days"))
		okEnvelope(t, w, PredictResult{ProductID: "prod_001", TrendDirection: "increasing", AvgDaily: 12.5})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	res, err := c.Forecast().Predict(context.Background(), "prod_001", 14)
	require.NoError(t, err)
	assert.Equal(t, "increasing", res.TrendDirection)
	assert.InDelta(t, 12.5, res.AvgDaily, 1e-9)
}
