// Package sentiment exposes review sentiment analysis as an application
// service: single-text analysis with aspect breakdown and batch scoring with
// an aggregate summary.
package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	analyzer "github.com/vlxd-platform/market-intelligence/internal/intelligence/sentiment"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// AnalyzeOptions tunes a single analysis call.
type AnalyzeOptions struct {
	// IncludeAspects controls the per-aspect breakdown.  Defaults to true.
	IncludeAspects *bool `json:"includeAspects,omitempty"`
}

// AnalyzeRequest carries one review text.
type AnalyzeRequest struct {
	Text    string          `json:"text"`
	Options *AnalyzeOptions `json:"options,omitempty"`
}

// BatchRequest carries several review texts.
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// BatchItem is the per-text result in a batch response.  Text is truncated
// so large reviews do not bloat the response.
type BatchItem struct {
	Text       string                `json:"text"`
	Sentiment  common.SentimentLabel `json:"sentiment"`
	Score      float64               `json:"score"`
	Confidence float64               `json:"confidence"`
}

// BatchSummary aggregates the sentiment distribution of a batch.
type BatchSummary struct {
	Total           int     `json:"total"`
	Positive        int     `json:"positive"`
	Negative        int     `json:"negative"`
	Neutral         int     `json:"neutral"`
	PositivePercent float64 `json:"positive_percent"`
	NegativePercent float64 `json:"negative_percent"`
}

// BatchResult is the batch response.
type BatchResult struct {
	Results []BatchItem  `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service analyzes Vietnamese review sentiment.
type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (analyzer.Result, error)
	AnalyzeBatch(ctx context.Context, req BatchRequest) (BatchResult, error)
}

// Deps holds all dependencies.
type Deps struct {
	Logger logging.Logger
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// batchTextLimit is the maximum rune length echoed back per batch item.
const batchTextLimit = 100

type serviceImpl struct {
	analyzer *analyzer.Analyzer
	logger   logging.Logger
}

// NewService creates a sentiment analysis Service.
func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		analyzer: analyzer.NewAnalyzer(),
		logger:   logger.Named("sentiment"),
	}
}

func (s *serviceImpl) Analyze(ctx context.Context, req AnalyzeRequest) (analyzer.Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return analyzer.Result{}, errors.NewValidationError("text", "text is required")
	}

	includeAspects := true
	if req.Options != nil && req.Options.IncludeAspects != nil {
		includeAspects = *req.Options.IncludeAspects
	}

	res := s.analyzer.Analyze(req.Text, includeAspects)
	s.logger.Debug("sentiment analyzed",
		logging.String("sentiment", string(res.Sentiment)),
		logging.Float64("score", res.Score),
		logging.Float64("confidence", res.Confidence))
	return res, nil
}

func (s *serviceImpl) AnalyzeBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if len(req.Texts) == 0 {
		return BatchResult{}, errors.NewValidationError("texts", "at least one text is required")
	}

	items := make([]BatchItem, 0, len(req.Texts))
	var positive, negative, neutral int
	for _, text := range req.Texts {
		res := s.analyzer.Analyze(text, true)
		items = append(items, BatchItem{
			Text:       truncate(text, batchTextLimit),
			Sentiment:  res.Sentiment,
			Score:      res.Score,
			Confidence: res.Confidence,
		})
		switch res.Sentiment {
		case common.SentimentPositive:
			positive++
		case common.SentimentNegative:
			negative++
		default:
			neutral++
		}
	}

	total := len(items)
	s.logger.Info("sentiment batch analyzed",
		logging.Int("total", total),
		logging.Int("positive", positive),
		logging.Int("negative", negative))

	return BatchResult{
		Results: items,
		Summary: BatchSummary{
			Total:           total,
			Positive:        positive,
			Negative:        negative,
			Neutral:         neutral,
			PositivePercent: round1(float64(positive) / float64(total) * 100),
			NegativePercent: round1(float64(negative) / float64(total) * 100),
		},
	}, nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
