// Package forecasting is the demand forecasting application service: it
// trains per-product models, persists them as artifacts with an evaluation
// sidecar, and serves predictions from the stored artifacts.
package forecasting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/forecast"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// ArtifactStore persists trained model blobs and their metrics sidecars,
// keyed by product.  GetModel returns an ArtifactNotFound error when no model
// exists for the product.
type ArtifactStore interface {
	PutModel(ctx context.Context, productID string, blob []byte) (string, error)
	GetModel(ctx context.Context, productID string) ([]byte, error)
	PutMetrics(ctx context.Context, productID string, blob []byte) error
	GetMetrics(ctx context.Context, productID string) ([]byte, error)
	ListProducts(ctx context.Context) ([]string, error)
}

// Locker serializes training runs per product.  Lock blocks until the key is
// held and returns the release function.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// HistorySource loads daily sales series when a training request does not
// carry the history inline.
type HistorySource interface {
	FetchDailySales(ctx context.Context, productID string, days int) (forecast.Series, error)
}

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// SalesPoint is one day of demand history on the wire.
type SalesPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

// TrainRequest trains a model for one product.  When History is empty the
// service pulls it from the configured history source.
type TrainRequest struct {
	ProductID string       `json:"productId"`
	History   []SalesPoint `json:"history,omitempty"`
}

// TrainResult reports a completed training run.
type TrainResult struct {
	ProductID string           `json:"productId"`
	Method    string           `json:"method"`
	Metrics   forecast.Metrics `json:"metrics"`
}

// PredictRequest asks for a demand forecast from a stored model.
type PredictRequest struct {
	ProductID string `json:"productId"`
	Horizon   int    `json:"days,omitempty"`
}

// PredictResult is the forecast for one product.
type PredictResult struct {
	ProductID      string                `json:"productId"`
	TrendDirection common.TrendDirection `json:"trendDirection"`
	Predictions    []forecast.Prediction `json:"predictions"`
	TotalPredicted float64               `json:"totalPredicted"`
	AvgDaily       float64               `json:"avgDaily"`
	Metrics        *forecast.Metrics     `json:"metrics,omitempty"`
}

// BatchPredictRequest forecasts several products in one call.
type BatchPredictRequest struct {
	ProductIDs []string `json:"productIds"`
	Horizon    int      `json:"days,omitempty"`
}

// BatchPredictResult keys per-product outcomes; products that failed land in
// Errors instead of Results.
type BatchPredictResult struct {
	Results map[string]PredictResult `json:"results"`
	Errors  map[string]string        `json:"errors,omitempty"`
}

// ModelInfo describes one stored model.
type ModelInfo struct {
	ProductID string            `json:"productId"`
	Metrics   *forecast.Metrics `json:"metrics,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service trains and serves per-product demand models.
type Service interface {
	Train(ctx context.Context, req TrainRequest) (TrainResult, error)
	Predict(ctx context.Context, req PredictRequest) (PredictResult, error)
	PredictBatch(ctx context.Context, req BatchPredictRequest) (BatchPredictResult, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Deps holds all dependencies.  Store is required; Locker defaults to the
// in-process key locker and History is optional.
type Deps struct {
	Store   ArtifactStore
	Locker  Locker
	History HistorySource
	Logger  logging.Logger
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

const (
	defaultHorizon = 30

	// historyFetchDays is how much history is pulled from the source when
	// a training request carries none.
	historyFetchDays = 365

	trainLockPrefix = "forecast:train:"

	dateLayout = "2006-01-02"
)

type serviceImpl struct {
	store   ArtifactStore
	locker  Locker
	history HistorySource
	logger  logging.Logger
}

// NewService creates a forecasting Service.
func NewService(deps Deps) (Service, error) {
	if deps.Store == nil {
		return nil, errors.New(errors.ErrCodeInternal, "forecasting: artifact store is required")
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewKeyLocker()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		store:   deps.Store,
		locker:  locker,
		history: deps.History,
		logger:  logger.Named("forecasting"),
	}, nil
}

func (s *serviceImpl) Train(ctx context.Context, req TrainRequest) (TrainResult, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return TrainResult{}, errors.NewValidationError("productId", "product id is required")
	}

	release, err := s.locker.Lock(ctx, trainLockPrefix+productID)
	if err != nil {
		return TrainResult{}, errors.Wrap(err, errors.ErrCodeInternal, "acquiring train lock failed")
	}
	defer release()

	series, err := s.trainingSeries(ctx, productID, req.History)
	if err != nil {
		return TrainResult{}, err
	}

	metrics, err := forecast.Evaluate(productID, series)
	if err != nil {
		return TrainResult{}, err
	}

	model, err := forecast.Fit(productID, series)
	if err != nil {
		return TrainResult{}, err
	}

	blob, err := forecast.EncodeModel(model)
	if err != nil {
		return TrainResult{}, errors.Wrap(err, errors.ErrCodeInternal, "encoding model failed")
	}
	path, err := s.store.PutModel(ctx, productID, blob)
	if err != nil {
		return TrainResult{}, errors.Wrap(err, errors.ErrCodeInternal, "storing model failed")
	}

	metrics.ModelPath = path
	metricsBlob, err := json.Marshal(metrics)
	if err != nil {
		return TrainResult{}, errors.Wrap(err, errors.ErrCodeInternal, "encoding metrics failed")
	}
	if err := s.store.PutMetrics(ctx, productID, metricsBlob); err != nil {
		return TrainResult{}, errors.Wrap(err, errors.ErrCodeInternal, "storing metrics failed")
	}

	s.logger.Info("model trained",
		logging.String("productId", productID),
		logging.String("method", model.Method),
		logging.Int("dataPoints", model.DataPoints),
		logging.Float64("accuracy", metrics.Accuracy))
	return TrainResult{ProductID: productID, Method: model.Method, Metrics: metrics}, nil
}

func (s *serviceImpl) Predict(ctx context.Context, req PredictRequest) (PredictResult, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return PredictResult{}, errors.NewValidationError("productId", "product id is required")
	}
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}

	blob, err := s.store.GetModel(ctx, productID)
	if err != nil {
		return PredictResult{}, err
	}
	model, err := forecast.DecodeModel(blob)
	if err != nil {
		return PredictResult{}, errors.Wrap(err, errors.ErrCodeInternal, "decoding model failed")
	}

	preds := model.Predict(horizon)
	var total float64
	for _, p := range preds {
		total += p.Predicted
	}
	total = round2(total)

	return PredictResult{
		ProductID:      productID,
		TrendDirection: model.TrendDirection(),
		Predictions:    preds,
		TotalPredicted: total,
		AvgDaily:       round2(total / float64(horizon)),
		Metrics:        s.loadMetrics(ctx, productID),
	}, nil
}

func (s *serviceImpl) PredictBatch(ctx context.Context, req BatchPredictRequest) (BatchPredictResult, error) {
	if len(req.ProductIDs) == 0 {
		return BatchPredictResult{}, errors.NewValidationError("productIds", "at least one product id is required")
	}

	out := BatchPredictResult{Results: map[string]PredictResult{}}
	for _, id := range req.ProductIDs {
		res, err := s.Predict(ctx, PredictRequest{ProductID: id, Horizon: req.Horizon})
		if err != nil {
			if out.Errors == nil {
				out.Errors = map[string]string{}
			}
			out.Errors[id] = err.Error()
			continue
		}
		out.Results[id] = res
	}

	s.logger.Info("batch predict",
		logging.Int("requested", len(req.ProductIDs)),
		logging.Int("succeeded", len(out.Results)),
		logging.Int("failed", len(out.Errors)))
	return out, nil
}

func (s *serviceImpl) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ids, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "listing models failed")
	}
	infos := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, ModelInfo{ProductID: id, Metrics: s.loadMetrics(ctx, id)})
	}
	return infos, nil
}

// trainingSeries resolves the series for a training run: inline history when
// present, otherwise the configured source.
func (s *serviceImpl) trainingSeries(ctx context.Context, productID string, history []SalesPoint) (forecast.Series, error) {
	if len(history) == 0 {
		if s.history == nil {
			return nil, errors.NewValidationError("history", "sales history is required")
		}
		series, err := s.history.FetchDailySales(ctx, productID, historyFetchDays)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "fetching sales history failed")
		}
		return series, nil
	}

	series := make(forecast.Series, 0, len(history))
	for i, p := range history {
		date, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return nil, errors.NewValidationError("history",
				fmt.Sprintf("invalid date %q at index %d", p.Date, i))
		}
		series = append(series, forecast.DataPoint{Date: date, Value: p.Quantity})
	}
	return series, nil
}

// loadMetrics reads the metrics sidecar; a missing or corrupt sidecar is not
// an error for prediction calls.
func (s *serviceImpl) loadMetrics(ctx context.Context, productID string) *forecast.Metrics {
	blob, err := s.store.GetMetrics(ctx, productID)
	if err != nil {
		return nil
	}
	var m forecast.Metrics
	if err := json.Unmarshal(blob, &m); err != nil {
		s.logger.Warn("corrupt metrics sidecar", logging.String("productId", productID), logging.Err(err))
		return nil
	}
	return &m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
