package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// ChurnHandler serves customer churn risk predictions.
type ChurnHandler struct {
	svc    churn.Service
	logger logging.Logger
}

// NewChurnHandler creates a new ChurnHandler.
func NewChurnHandler(svc churn.Service, logger logging.Logger) *ChurnHandler {
	return &ChurnHandler{svc: svc, logger: logger.Named("churn-handler")}
}

// Predict handles POST /api/v1/churn/predict. The body is a single customer
// feature snapshot.
func (h *ChurnHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var features churn.CustomerFeatures
	if err := decodeJSON(r, &features); err != nil {
		writeAppError(w, err)
		return
	}

	pred, err := h.svc.Predict(r.Context(), features)
	if err != nil {
		h.logger.Warn("churn prediction failed",
			logging.String("customerId", features.CustomerID), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, pred)
}

// AtRisk handles POST /api/v1/churn/at-risk. The body carries customer
// snapshots plus an optional probability floor and limit.
func (h *ChurnHandler) AtRisk(w http.ResponseWriter, r *http.Request) {
	var req churn.AtRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.AtRisk(r.Context(), req)
	if err != nil {
		h.logger.Warn("at-risk listing failed",
			logging.Int("customers", len(req.Customers)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}
