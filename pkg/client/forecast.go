package client

import (
	"context"
	"fmt"
	"net/url"
)

// ---------------------------------------------------------------------------
// DTOs — request / response
// ---------------------------------------------------------------------------

// SalesPoint is one day of demand history.
type SalesPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

// TrainRequest trains a demand model for one product.  When History is empty
// the server pulls it from its own sales records.
type TrainRequest struct {
	ProductID string       `json:"productId"`
	History   []SalesPoint `json:"history,omitempty"`
}

// ForecastMetrics is the evaluation sidecar of a trained model.
type ForecastMetrics struct {
	ProductID  string  `json:"productId"`
	Accuracy   float64 `json:"accuracy"`
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape"`
	DataPoints int     `json:"dataPoints"`
	TrainedAt  string  `json:"trainedAt"`
	ModelPath  string  `json:"modelPath"`
}

// TrainResult reports a completed training run.
type TrainResult struct {
	ProductID string          `json:"productId"`
	Method    string          `json:"method"`
	Metrics   ForecastMetrics `json:"metrics"`
}

// ForecastPoint is one predicted day of demand.
type ForecastPoint struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// PredictResult is the demand forecast for one product.
type PredictResult struct {
	ProductID      string           `json:"productId"`
	TrendDirection string           `json:"trendDirection"`
	Predictions    []ForecastPoint  `json:"predictions"`
	TotalPredicted float64          `json:"totalPredicted"`
	AvgDaily       float64          `json:"avgDaily"`
	Metrics        *ForecastMetrics `json:"metrics,omitempty"`
}

// BatchPredictRequest forecasts several products in one call.
type BatchPredictRequest struct {
	ProductIDs []string `json:"productIds"`
	Horizon    int      `json:"days,omitempty"`
}

// BatchPredictResult keys per-product outcomes; failed products land in
// Errors instead of Results.
type BatchPredictResult struct {
	Results map[string]PredictResult `json:"results"`
	Errors  map[string]string        `json:"errors,omitempty"`
}

// ModelInfo describes one stored model.
type ModelInfo struct {
	ProductID string           `json:"productId"`
	Metrics   *ForecastMetrics `json:"metrics,omitempty"`
}

// ---------------------------------------------------------------------------
// ForecastClient
// ---------------------------------------------------------------------------

// ForecastClient provides access to the demand forecasting endpoints.
type ForecastClient struct {
	client *Client
}

// Train trains a demand model for one product.
// POST /api/v1/forecast/train
func (fc *ForecastClient) Train(ctx context.Context, req *TrainRequest) (*TrainResult, error) {
	if req == nil || req.ProductID == "" {
		return nil, invalidArg("productId is required")
	}

	var result TrainResult
	if err := fc.client.post(ctx, "/api/v1/forecast/train", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Predict forecasts demand for one product over the given horizon in days.
// A non-positive horizon uses the server default.
// GET /api/v1/forecast/predict?productId={id}&days={days}
func (fc *ForecastClient) Predict(ctx context.Context, productID string, days int) (*PredictResult, error) {
	if productID == "" {
		return nil, invalidArg("productId is required")
	}

	path := "/api/v1/forecast/predict?productId=" + url.QueryEscape(productID)
	if days > 0 {
		path += fmt.Sprintf("&days=%d", days)
	}

	var result PredictResult
	if err := fc.client.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PredictBatch forecasts demand for several products in one call.
// POST /api/v1/forecast/batch-predict
func (fc *ForecastClient) PredictBatch(ctx context.Context, req *BatchPredictRequest) (*BatchPredictResult, error) {
	if req == nil || len(req.ProductIDs) == 0 {
		return nil, invalidArg("productIds list is required")
	}

	var result BatchPredictResult
	if err := fc.client.post(ctx, "/api/v1/forecast/batch-predict", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListModels lists the stored demand models.
// GET /api/v1/forecast/models
func (fc *ForecastClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result []ModelInfo
	if err := fc.client.get(ctx, "/api/v1/forecast/models", &result); err != nil {
		return nil, err
	}
	return result, nil
}
