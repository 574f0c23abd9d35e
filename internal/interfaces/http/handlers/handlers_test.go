package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/application/forecasting"
	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/application/matching"
	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/application/search"
	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/embedding"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/similarity"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func postJSON(path, body string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return httptest.NewRecorder(), req
}

// ---------------------------------------------------------------------------
// Churn
// ---------------------------------------------------------------------------

func newChurnHandler() *ChurnHandler {
	return NewChurnHandler(churn.NewService(churn.Deps{}), logging.NewNopLogger())
}

func TestChurnPredict(t *testing.T) {
	h := newChurnHandler()
	last := time.Now().AddDate(0, 0, -45).Format(time.RFC3339)

	rec, req := postJSON("/api/v1/churn/predict",
		`{"customerId":"cust_001","lastOrderDate":"`+last+`","orders12m":8,"totalSpent12m":120000000,"recent3mSpent":20000000,"previous3mSpent":35000000,"hasReviews":true,"avgRatingGiven":4.2}`)
	h.Predict(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "cust_001")
}

func TestChurnPredict_BadBody(t *testing.T) {
	h := newChurnHandler()

	rec, req := postJSON("/api/v1/churn/predict", `{"customerId":`)
	h.Predict(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.ErrCodeBadRequest.String(), env.Error.Code)
}

func TestChurnAtRisk(t *testing.T) {
	h := newChurnHandler()

	rec, req := postJSON("/api/v1/churn/at-risk",
		`{"customers":[{"customerId":"cust_001","orders12m":1},{"customerId":"cust_002","orders12m":12}],"minProbability":0.1}`)
	h.AtRisk(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

// ---------------------------------------------------------------------------
// Pricing
// ---------------------------------------------------------------------------

func newPricingHandler() *PricingHandler {
	return NewPricingHandler(pricing.NewService(pricing.Deps{}), logging.NewNopLogger())
}

func TestPricingRecommend(t *testing.T) {
	h := newPricingHandler()

	rec, req := postJSON("/api/v1/pricing/recommend",
		`{"productId":"prod_001","basePrice":95000,"cost":78000,"category":"Xi măng"}`)
	h.Recommend(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestPricingRecommendBatch(t *testing.T) {
	h := newPricingHandler()

	rec, req := postJSON("/api/v1/pricing/batch",
		`{"products":[{"productId":"prod_001","basePrice":95000},{"productId":"prod_002","basePrice":350000}]}`)
	h.RecommendBatch(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestPricingElasticity(t *testing.T) {
	h := newPricingHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/elasticity", nil)
	h.Elasticity(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Data)
}

// ---------------------------------------------------------------------------
// Matching
// ---------------------------------------------------------------------------

func newMatchingHandler(t *testing.T) *MatchingHandler {
	t.Helper()
	svc, err := matching.NewService(matching.Deps{Scorer: similarity.NewJaccardScorer()})
	require.NoError(t, err)
	return NewMatchingHandler(svc, logging.NewNopLogger())
}

func TestMatchingMatch_Validation(t *testing.T) {
	h := newMatchingHandler(t)

	rec, req := postJSON("/api/v1/contractors/match", `{"project":{},"contractors":[]}`)
	h.Match(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.ErrCodeValidation.String(), env.Error.Code)
}

// ---------------------------------------------------------------------------
// Market
// ---------------------------------------------------------------------------

func newMarketHandler() *MarketHandler {
	return NewMarketHandler(market.NewService(market.Deps{}), logging.NewNopLogger())
}

func TestMarketAnomaly_ReportsDirection(t *testing.T) {
	h := newMarketHandler()

	rec, req := postJSON("/api/v1/market/anomaly",
		`{"currentPrice":180,"historicalPrices":[90,110,90,110,90,110,90,110]}`)
	h.Anomaly(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"direction":"HIGH"`)
	assert.Contains(t, string(env.Data), `"isAnomaly":true`)
}

func TestMarketAnomaly_ShortHistoryCarriesReason(t *testing.T) {
	h := newMarketHandler()

	rec, req := postJSON("/api/v1/market/anomaly",
		`{"currentPrice":180,"historicalPrices":[90,110,90]}`)
	h.Anomaly(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"isAnomaly":false`)
	assert.Contains(t, string(env.Data), `"reason":"Insufficient data"`)
}

// ---------------------------------------------------------------------------
// Sentiment
// ---------------------------------------------------------------------------

func TestSentimentAnalyze(t *testing.T) {
	h := NewSentimentHandler(sentiment.NewService(sentiment.Deps{}), logging.NewNopLogger())

	rec, req := postJSON("/api/v1/sentiment/analyze", `{"text":"sản phẩm rất tốt, giao hàng nhanh"}`)
	h.Analyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func newSearchHandler(t *testing.T) *SearchHandler {
	t.Helper()
	svc, err := search.NewService(search.Deps{
		Embedder: embedding.NewHashEmbedder(128),
		Index:    vectorstore.NewMemoryIndex(),
	})
	require.NoError(t, err)
	return NewSearchHandler(svc, logging.NewNopLogger())
}

func TestSearchIndexThenSemantic(t *testing.T) {
	h := newSearchHandler(t)

	rec, req := postJSON("/api/v1/search/index",
		`{"products":[{"id":"prod_001","name":"Xi măng Holcim PCB40","category":"Xi măng","price":95000}]}`)
	h.Index(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, req = postJSON("/api/v1/search/semantic", `{"query":"xi măng","limit":5}`)
	h.Semantic(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestSearchSuggest_ShortQueryIsEmptyList(t *testing.T) {
	h := newSearchHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest?q=x", nil)
	h.Suggest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[]`, string(env.Data))
}

// ---------------------------------------------------------------------------
// Forecast
// ---------------------------------------------------------------------------

type mockForecastService struct {
	trainFunc   func(ctx context.Context, req forecasting.TrainRequest) (forecasting.TrainResult, error)
	predictFunc func(ctx context.Context, req forecasting.PredictRequest) (forecasting.PredictResult, error)
}

func (m *mockForecastService) Train(ctx context.Context, req forecasting.TrainRequest) (forecasting.TrainResult, error) {
	return m.trainFunc(ctx, req)
}

func (m *mockForecastService) Predict(ctx context.Context, req forecasting.PredictRequest) (forecasting.PredictResult, error) {
	return m.predictFunc(ctx, req)
}

func (m *mockForecastService) PredictBatch(context.Context, forecasting.BatchPredictRequest) (forecasting.BatchPredictResult, error) {
	return forecasting.BatchPredictResult{}, nil
}

func (m *mockForecastService) ListModels(context.Context) ([]forecasting.ModelInfo, error) {
	return []forecasting.ModelInfo{{ProductID: "prod_001"}}, nil
}

func TestForecastPredict_QueryParams(t *testing.T) {
	var got forecasting.PredictRequest
	svc := &mockForecastService{
		predictFunc: func(_ context.Context, req forecasting.PredictRequest) (forecasting.PredictResult, error) {
			got = req
			return forecasting.PredictResult{ProductID: req.ProductID}, nil
		},
	}
	h := NewForecastHandler(svc, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/predict?productId=prod_001&days=14", nil)
	h.Predict(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prod_001", got.ProductID)
	assert.Equal(t, 14, got.Horizon)
}

func TestForecastPredict_ArtifactMissing(t *testing.T) {
	svc := &mockForecastService{
		predictFunc: func(context.Context, forecasting.PredictRequest) (forecasting.PredictResult, error) {
			return forecasting.PredictResult{}, errors.ArtifactNotFound("prod_404")
		},
	}
	h := NewForecastHandler(svc, logging.NewNopLogger())

	rec, req := postJSON("/api/v1/forecast/predict", `{"productId":"prod_404"}`)
	h.Predict(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, errors.ErrCodeArtifactNotFound.String(), env.Error.Code)
}

func TestForecastListModels(t *testing.T) {
	h := NewForecastHandler(&mockForecastService{}, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/models", nil)
	h.ListModels(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), "prod_001")
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthLiveness(t *testing.T) {
	h := NewHealthHandler("1.2.3")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	h.Liveness(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"1.2.3"`)
}

func TestHealthReadiness_UnhealthyComponent(t *testing.T) {
	h := NewHealthHandler("1.2.3",
		HealthCheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }},
		HealthCheckFunc{Component: "milvus", Fn: func(context.Context) error {
			return errors.New(errors.ErrCodeServiceUnavailable, "connection refused")
		}},
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	h.Readiness(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["milvus"].Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
}
