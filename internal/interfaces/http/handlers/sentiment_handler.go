package handlers

import (
	"net/http"

	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

// SentimentHandler serves Vietnamese review sentiment analysis.
type SentimentHandler struct {
	svc    sentiment.Service
	logger logging.Logger
}

// NewSentimentHandler creates a new SentimentHandler.
func NewSentimentHandler(svc sentiment.Service, logger logging.Logger) *SentimentHandler {
	return &SentimentHandler{svc: svc, logger: logger.Named("sentiment-handler")}
}

// Analyze handles POST /api/v1/sentiment/analyze.
func (h *SentimentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req sentiment.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		h.logger.Warn("sentiment analysis failed", logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// AnalyzeBatch handles POST /api/v1/sentiment/batch.
func (h *SentimentHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req sentiment.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.AnalyzeBatch(r.Context(), req)
	if err != nil {
		h.logger.Warn("batch sentiment analysis failed",
			logging.Int("texts", len(req.Texts)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}
