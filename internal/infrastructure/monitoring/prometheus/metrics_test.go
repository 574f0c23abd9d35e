package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	return m, c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.ScoringRequestsTotal)
	assert.NotNil(t, m.SearchRequestsTotal)
	assert.NotNil(t, m.TrainingRunsTotal)
	assert.NotNil(t, m.PredictionsTotal)
	assert.NotNil(t, m.AnomaliesTotal)
	assert.NotNil(t, m.AlertsPublishedTotal)
	assert.NotNil(t, m.SentimentRequestsTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestRecordHTTPRequest_AllMetricsUpdated(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "GET", "/api/v1/search", 200, 100*time.Millisecond, 1024, 2048)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="GET",path="/api/v1/search",status_code="200"} 1`)
	assert.Contains(t, output, `test_unit_http_request_size_bytes_sum{method="GET",path="/api/v1/search"} 1024`)
	assert.Contains(t, output, `test_unit_http_response_size_bytes_sum{method="GET",path="/api/v1/search"} 2048`)
	assert.Contains(t, output, `test_unit_http_request_duration_seconds_count{method="GET",path="/api/v1/search"} 1`)
}

func TestRecordScoring_Success(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordScoring(m, "churn", 50*time.Millisecond, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_scoring_requests_total{scorer="churn",status="success"} 1`)
	assert.Contains(t, output, `test_unit_scoring_duration_seconds_count{scorer="churn"} 1`)
}

func TestRecordScoring_Failure(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordScoring(m, "pricing", 10*time.Millisecond, errors.New("bad input"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_scoring_requests_total{scorer="pricing",status="failure"} 1`)
}

func TestRecordSearch_CountsResultsOnSuccessOnly(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordSearch(m, "semantic", 12, 30*time.Millisecond, nil)
	RecordSearch(m, "semantic", 0, 5*time.Millisecond, errors.New("index unavailable"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_search_requests_total{mode="semantic",status="success"} 1`)
	assert.Contains(t, output, `test_unit_search_requests_total{mode="semantic",status="failure"} 1`)
	assert.Contains(t, output, `test_unit_search_result_count_count{mode="semantic"} 1`)
}

func TestRecordTraining(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordTraining(m, 2*time.Second, nil)
	RecordTraining(m, time.Second, errors.New("insufficient data"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_training_runs_total{status="success"} 1`)
	assert.Contains(t, output, `test_unit_training_runs_total{status="failure"} 1`)
	assert.Contains(t, output, `test_unit_training_duration_seconds_count 2`)
}

func TestRecordDBQuery_Success(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordDBQuery(m, "postgres", "select", 10*time.Millisecond, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_db_query_duration_seconds_count{db="postgres",operation="select"} 1`)
}

func TestRecordDBQuery_Error(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordDBQuery(m, "postgres", "insert", 5*time.Millisecond, errors.New("db error"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_db_query_duration_seconds_count{db="postgres",operation="insert"} 1`)
	assert.Contains(t, output, `test_unit_errors_total{component="postgres",error_type="query_error",severity="error"} 1`)
}

func TestRecordCacheAccess_Hit(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "redis", true)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_cache_hits_total{cache="redis"} 1`)
}

func TestRecordCacheAccess_Miss(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "local", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_cache_misses_total{cache="local"} 1`)
}

func TestDefaultBuckets(t *testing.T) {
	assert.NotNil(t, DefaultHTTPDurationBuckets)
	assert.NotNil(t, DefaultTrainingDurationBuckets)
	assert.NotNil(t, DefaultBatchSizeBuckets)
}

func TestConcurrentMetricRecording(t *testing.T) {
	m, _ := newTestAppMetrics(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				RecordHTTPRequest(m, "GET", "/path", 200, time.Millisecond, 10, 10)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
