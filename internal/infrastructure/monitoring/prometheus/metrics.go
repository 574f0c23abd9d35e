package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Scoring Layer (churn, pricing, matching)
	ScoringRequestsTotal   CounterVec
	ScoringDuration        HistogramVec
	ScoringBatchSize       HistogramVec
	ScoringFailuresTotal   CounterVec

	// Search Layer
	SearchRequestsTotal     CounterVec
	SearchDuration          HistogramVec
	SearchResultCount       HistogramVec
	IndexedDocumentsTotal   GaugeVec
	EmbeddingRequestsTotal  CounterVec
	EmbeddingFallbacksTotal CounterVec

	// Forecast Layer
	TrainingRunsTotal     CounterVec
	TrainingDuration      HistogramVec
	PredictionsTotal      CounterVec
	PredictionDuration    HistogramVec
	ModelAccuracy         GaugeVec
	ArtifactStorageBytes  GaugeVec

	// Market Layer
	TrendAnalysesTotal   CounterVec
	AnomaliesTotal       CounterVec
	AlertsPublishedTotal CounterVec
	AlertPublishFailures CounterVec

	// Sentiment Layer
	SentimentRequestsTotal CounterVec
	SentimentDuration      HistogramVec

	// Infrastructure Layer
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessageQueueDepth      GaugeVec
	MessageProcessDuration HistogramVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultTrainingDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}
	DefaultSizeBuckets             = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultBatchSizeBuckets        = []float64{1, 5, 10, 25, 50, 100, 250, 500}
	DefaultResultCountBuckets      = []float64{0, 1, 5, 10, 25, 50, 100, 250}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Scoring
	m.ScoringRequestsTotal = collector.RegisterCounter("scoring_requests_total", "Scoring requests", "scorer", "status")
	m.ScoringDuration = collector.RegisterHistogram("scoring_duration_seconds", "Scoring duration", DefaultHTTPDurationBuckets, "scorer")
	m.ScoringBatchSize = collector.RegisterHistogram("scoring_batch_size", "Scoring batch size", DefaultBatchSizeBuckets, "scorer")
	m.ScoringFailuresTotal = collector.RegisterCounter("scoring_failures_total", "Scoring failures", "scorer", "error_code")

	// Search
	m.SearchRequestsTotal = collector.RegisterCounter("search_requests_total", "Search requests", "mode", "status")
	m.SearchDuration = collector.RegisterHistogram("search_duration_seconds", "Search duration", DefaultHTTPDurationBuckets, "mode")
	m.SearchResultCount = collector.RegisterHistogram("search_result_count", "Search result count", DefaultResultCountBuckets, "mode")
	m.IndexedDocumentsTotal = collector.RegisterGauge("indexed_documents_total", "Indexed documents", "index")
	m.EmbeddingRequestsTotal = collector.RegisterCounter("embedding_requests_total", "Embedding requests", "provider", "status")
	m.EmbeddingFallbacksTotal = collector.RegisterCounter("embedding_fallbacks_total", "Embedding provider fallbacks", "provider")

	// Forecast
	m.TrainingRunsTotal = collector.RegisterCounter("training_runs_total", "Model training runs", "status")
	m.TrainingDuration = collector.RegisterHistogram("training_duration_seconds", "Model training duration", DefaultTrainingDurationBuckets)
	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Forecast predictions served", "source", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Prediction duration", DefaultHTTPDurationBuckets, "source")
	m.ModelAccuracy = collector.RegisterGauge("model_accuracy_percent", "Last evaluated model accuracy", "product_id")
	m.ArtifactStorageBytes = collector.RegisterGauge("artifact_storage_bytes", "Model artifact storage size", "store")

	// Market
	m.TrendAnalysesTotal = collector.RegisterCounter("trend_analyses_total", "Market trend analyses", "status")
	m.AnomaliesTotal = collector.RegisterCounter("anomalies_detected_total", "Detected anomalies", "severity")
	m.AlertsPublishedTotal = collector.RegisterCounter("alerts_published_total", "Alerts published", "topic")
	m.AlertPublishFailures = collector.RegisterCounter("alert_publish_failures_total", "Alert publish failures", "topic")

	// Sentiment
	m.SentimentRequestsTotal = collector.RegisterCounter("sentiment_requests_total", "Sentiment analyses", "label")
	m.SentimentDuration = collector.RegisterHistogram("sentiment_duration_seconds", "Sentiment analysis duration", DefaultHTTPDurationBuckets)

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessageQueueDepth = collector.RegisterGauge("mq_depth", "Message queue depth", "queue")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "queue", "message_type")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RegisterAppMetrics is an alias for NewAppMetrics.
func RegisterAppMetrics(collector MetricsCollector) *AppMetrics {
	return NewAppMetrics(collector)
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

func RecordScoring(metrics *AppMetrics, scorer string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ScoringRequestsTotal.WithLabelValues(scorer, status).Inc()
	metrics.ScoringDuration.WithLabelValues(scorer).Observe(duration.Seconds())
}

func RecordSearch(metrics *AppMetrics, mode string, resultCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err == nil {
		metrics.SearchResultCount.WithLabelValues(mode).Observe(float64(resultCount))
	}
}

func RecordTraining(metrics *AppMetrics, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.TrainingRunsTotal.WithLabelValues(status).Inc()
	metrics.TrainingDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
