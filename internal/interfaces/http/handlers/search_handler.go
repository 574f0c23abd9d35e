package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/search"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// SearchHandler serves hybrid semantic product search.
type SearchHandler struct {
	svc    search.Service
	logger logging.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc search.Service, logger logging.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger.Named("search-handler")}
}

// IndexRequest carries the products to (re)index.
type IndexRequest struct {
	Products []search.Product `json:"products"`
}

// Semantic handles POST /api/v1/search/semantic.
func (h *SearchHandler) Semantic(w http.ResponseWriter, r *http.Request) {
	var req search.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Search(r.Context(), req)
	if err != nil {
		h.logger.Warn("semantic search failed",
			logging.String("query", req.Query), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Index handles POST /api/v1/search/index.
func (h *SearchHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.IndexProducts(r.Context(), req.Products)
	if err != nil {
		h.logger.Warn("product indexing failed",
			logging.Int("products", len(req.Products)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Suggest handles GET /api/v1/search/suggest?q=....
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	suggestions, err := h.svc.Suggest(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, suggestions)
}

// Stats handles GET /api/v1/search/stats.
func (h *SearchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Warn("search stats failed", logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, stats)
}
