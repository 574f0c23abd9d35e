package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/matching"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// MatchingHandler serves contractor/project matching.
type MatchingHandler struct {
	svc    matching.Service
	logger logging.Logger
}

// NewMatchingHandler creates a new MatchingHandler.
func NewMatchingHandler(svc matching.Service, logger logging.Logger) *MatchingHandler {
	return &MatchingHandler{svc: svc, logger: logger.Named("matching-handler")}
}

// Match handles POST /api/v1/contractors/match.
func (h *MatchingHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matching.MatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	matches, err := h.svc.Match(r.Context(), req)
	if err != nil {
		h.logger.Warn("contractor matching failed",
			logging.Int("contractors", len(req.Contractors)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, matches)
}
