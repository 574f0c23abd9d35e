// Package http wires the API server: route tree, middleware chain, and the
// graceful lifecycle of the listener.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/http/handlers"
)

// Middleware is a standard net/http middleware constructor.
type Middleware func(http.Handler) http.Handler

// RouterConfig aggregates the handlers and middleware forming the route
// tree. Nil handlers simply leave their routes unregistered, which keeps
// partial deployments (worker-only hosts, search-only hosts) possible.
type RouterConfig struct {
	Churn     *handlers.ChurnHandler
	Pricing   *handlers.PricingHandler
	Matching  *handlers.MatchingHandler
	Market    *handlers.MarketHandler
	Sentiment *handlers.SentimentHandler
	Search    *handlers.SearchHandler
	Forecast  *handlers.ForecastHandler
	Health    *handlers.HealthHandler

	CORS           Middleware
	RequestLogging Middleware
	RateLimit      Middleware

	Metrics prometheus.MetricsCollector
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.RequestLogging != nil {
		r.Use(cfg.RequestLogging)
	}
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Liveness)
		r.Get("/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerChurnRoutes(api, cfg.Churn)
		registerPricingRoutes(api, cfg.Pricing)
		registerMatchingRoutes(api, cfg.Matching)
		registerMarketRoutes(api, cfg.Market)
		registerSentimentRoutes(api, cfg.Sentiment)
		registerSearchRoutes(api, cfg.Search)
		registerForecastRoutes(api, cfg.Forecast)
	})

	return r
}

func registerChurnRoutes(r chi.Router, h *handlers.ChurnHandler) {
	if h == nil {
		return
	}
	r.Route("/churn", func(cr chi.Router) {
		cr.Post("/predict", h.Predict)
		cr.Post("/at-risk", h.AtRisk)
	})
}

func registerPricingRoutes(r chi.Router, h *handlers.PricingHandler) {
	if h == nil {
		return
	}
	r.Route("/pricing", func(pr chi.Router) {
		pr.Post("/recommend", h.Recommend)
		pr.Post("/batch", h.RecommendBatch)
		pr.Get("/elasticity", h.Elasticity)
	})
}

func registerMatchingRoutes(r chi.Router, h *handlers.MatchingHandler) {
	if h == nil {
		return
	}
	r.Post("/contractors/match", h.Match)
}

func registerMarketRoutes(r chi.Router, h *handlers.MarketHandler) {
	if h == nil {
		return
	}
	r.Route("/market", func(mr chi.Router) {
		mr.Post("/trends", h.Trends)
		mr.Post("/anomaly", h.Anomaly)
		mr.Post("/alerts", h.Alerts)
		mr.Post("/forecast", h.Forecast)
	})
}

func registerSentimentRoutes(r chi.Router, h *handlers.SentimentHandler) {
	if h == nil {
		return
	}
	r.Route("/sentiment", func(sr chi.Router) {
		sr.Post("/analyze", h.Analyze)
		sr.Post("/batch", h.AnalyzeBatch)
	})
}

func registerSearchRoutes(r chi.Router, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	r.Route("/search", func(sr chi.Router) {
		sr.Post("/semantic", h.Semantic)
		sr.Post("/index", h.Index)
		sr.Get("/suggest", h.Suggest)
		sr.Get("/stats", h.Stats)
	})
}

func registerForecastRoutes(r chi.Router, h *handlers.ForecastHandler) {
	if h == nil {
		return
	}
	r.Route("/forecast", func(fr chi.Router) {
		fr.Post("/train", h.Train)
		fr.Get("/predict", h.Predict)
		fr.Post("/predict", h.Predict)
		fr.Post("/batch-predict", h.PredictBatch)
		fr.Get("/models", h.ListModels)
	})
}
