package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/forecasting"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// ForecastHandler serves the demand forecasting pipeline: training, stored
// model listing, and predictions from stored artifacts.
type ForecastHandler struct {
	svc    forecasting.Service
	logger logging.Logger
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(svc forecasting.Service, logger logging.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, logger: logger.Named("forecast-handler")}
}

// Train handles POST /api/v1/forecast/train.
func (h *ForecastHandler) Train(w http.ResponseWriter, r *http.Request) {
	var req forecasting.TrainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Train(r.Context(), req)
	if err != nil {
		h.logger.Warn("model training failed",
			logging.String("productId", req.ProductID), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Predict handles both GET and POST /api/v1/forecast/predict. GET reads
// productId and days from the query string; POST takes a JSON body.
func (h *ForecastHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req forecasting.PredictRequest
	if r.Method == http.MethodGet {
		req.ProductID = r.URL.Query().Get("productId")
		req.Horizon = queryInt(r, "days", 0)
	} else if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		h.logger.Warn("prediction failed",
			logging.String("productId", req.ProductID), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// PredictBatch handles POST /api/v1/forecast/batch-predict.
func (h *ForecastHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req forecasting.BatchPredictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.PredictBatch(r.Context(), req)
	if err != nil {
		h.logger.Warn("batch prediction failed",
			logging.Int("products", len(req.ProductIDs)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// ListModels handles GET /api/v1/forecast/models.
func (h *ForecastHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context())
	if err != nil {
		h.logger.Warn("model listing failed", logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, models)
}
