package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// MarketHandler serves market trend analysis, anomaly detection, alert
// generation, and the short-horizon price forecast.
type MarketHandler struct {
	svc    market.Service
	logger logging.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(svc market.Service, logger logging.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: logger.Named("market-handler")}
}

// AlertsRequest carries the product snapshots to scan for alerts.
type AlertsRequest struct {
	Products []market.ProductSnapshot `json:"products"`
}

// Trends handles POST /api/v1/market/trends.
func (h *MarketHandler) Trends(w http.ResponseWriter, r *http.Request) {
	var req market.TrendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	report, err := h.svc.AnalyzeTrends(r.Context(), req)
	if err != nil {
		h.logger.Warn("trend analysis failed",
			logging.String("category", req.Category), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, report)
}

// Anomaly handles POST /api/v1/market/anomaly.
func (h *MarketHandler) Anomaly(w http.ResponseWriter, r *http.Request) {
	var req market.AnomalyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.DetectAnomaly(r.Context(), req)
	if err != nil {
		h.logger.Warn("anomaly detection failed", logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Alerts handles POST /api/v1/market/alerts.
func (h *MarketHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	var req AlertsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.GenerateAlerts(r.Context(), req.Products)
	if err != nil {
		h.logger.Warn("alert generation failed",
			logging.Int("products", len(req.Products)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Forecast handles POST /api/v1/market/forecast, the linear regression
// forecast over a raw price slice.
func (h *MarketHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req market.ForecastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Forecast(r.Context(), req)
	if err != nil {
		h.logger.Warn("price forecast failed",
			logging.Int("prices", len(req.Prices)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}
