package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// PricingHandler serves dynamic pricing recommendations.
type PricingHandler struct {
	svc    pricing.Service
	logger logging.Logger
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(svc pricing.Service, logger logging.Logger) *PricingHandler {
	return &PricingHandler{svc: svc, logger: logger.Named("pricing-handler")}
}

// RecommendRequest carries one product inline plus optional constraints.
type RecommendRequest struct {
	pricing.Product
	Constraints *pricing.Constraints `json:"constraints,omitempty"`
}

// BatchRecommendRequest carries several products sharing one constraint set.
type BatchRecommendRequest struct {
	Products    []pricing.Product    `json:"products"`
	Constraints *pricing.Constraints `json:"constraints,omitempty"`
}

// Recommend handles POST /api/v1/pricing/recommend.
func (h *PricingHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	rec, err := h.svc.Recommend(r.Context(), req.Product, req.Constraints)
	if err != nil {
		h.logger.Warn("price recommendation failed",
			logging.String("productId", req.ProductID), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, rec)
}

// RecommendBatch handles POST /api/v1/pricing/batch.
func (h *PricingHandler) RecommendBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRecommendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.RecommendBatch(r.Context(), req.Products, req.Constraints)
	if err != nil {
		h.logger.Warn("batch price recommendation failed",
			logging.Int("products", len(req.Products)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Elasticity handles GET /api/v1/pricing/elasticity, returning the static
// category elasticity table.
func (h *PricingHandler) Elasticity(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.svc.ElasticityTable())
}
