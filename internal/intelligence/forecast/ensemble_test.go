package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

func dailySeries(start time.Time, values []float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = DataPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return s
}

func constantValues(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rampValues(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// weeklyValues builds a strongly weekly-seasonal series.
func weeklyValues(weeks int) []float64 {
	pattern := []float64{50, 60, 70, 80, 70, 40, 30}
	out := make([]float64, 0, weeks*7)
	for w := 0; w < weeks; w++ {
		out = append(out, pattern...)
	}
	return out
}

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEnsemble_InsufficientData(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, []float64{10, 20}), 7)

	assert.Zero(t, res.PredictedDemand)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
	assert.Equal(t, common.TrendStable, res.Trend)
	assert.Equal(t, SeasonalityNone, res.Seasonality)
	assert.Empty(t, res.MethodBreakdown)
}

func TestEnsemble_ConstantSeries(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, constantValues(50, 30)), 7)

	assert.InDelta(t, 50, res.PredictedDemand, 0.5)
	assert.Equal(t, common.TrendStable, res.Trend)
	assert.GreaterOrEqual(t, res.Confidence, 0.9)
}

func TestEnsemble_IncreasingTrend(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, rampValues(10, 2, 30)), 7)

	assert.Equal(t, common.TrendUp, res.Trend)
	// Last observation is 68; a week out every trend-aware member
	// extrapolates above it.
	assert.Greater(t, res.PredictedDemand, 60.0)
}

func TestEnsemble_DecreasingTrend(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, rampValues(100, -2, 30)), 7)
	assert.Equal(t, common.TrendDown, res.Trend)
}

func TestEnsemble_WeightsNormalized(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, rampValues(10, 1, 20)), 7)

	var total float64
	for _, p := range res.MethodBreakdown {
		total += p.Weight
	}
	assert.InDelta(t, 1.0, total, 0.05)
}

func TestEnsemble_NeverNegative(t *testing.T) {
	e := NewEnsemble(0)
	res := e.Forecast(dailySeries(testStart, rampValues(30, -3, 20)), 30)
	assert.GreaterOrEqual(t, res.PredictedDemand, 0.0)
}

func TestEnsemble_SeasonalSeriesUsesHoltWinters(t *testing.T) {
	e := NewEnsemble(7)
	res := e.Forecast(dailySeries(testStart, weeklyValues(6)), 7)

	assert.NotEqual(t, SeasonalityNone, res.Seasonality)
	methods := make([]string, 0, len(res.MethodBreakdown))
	for _, p := range res.MethodBreakdown {
		methods = append(methods, p.Method)
	}
	assert.Contains(t, methods, "holt_winters")
}

func TestEnsemble_ConfidenceBounds(t *testing.T) {
	e := NewEnsemble(0)
	for _, values := range [][]float64{
		constantValues(10, 15),
		rampValues(1, 5, 15),
		weeklyValues(4),
		{1, 900, 3, 800, 2, 950, 1, 870, 4, 920},
	} {
		res := e.Forecast(dailySeries(testStart, values), 7)
		assert.GreaterOrEqual(t, res.Confidence, 0.3)
		assert.LessOrEqual(t, res.Confidence, 0.95)
	}
}

func TestDetectTrend(t *testing.T) {
	assert.Equal(t, common.TrendUp, DetectTrend(rampValues(10, 2, 20)))
	assert.Equal(t, common.TrendDown, DetectTrend(rampValues(100, -2, 20)))
	assert.Equal(t, common.TrendStable, DetectTrend(constantValues(50, 20)))
	assert.Equal(t, common.TrendStable, DetectTrend([]float64{1, 2}))
}

func TestDetectSeasonality(t *testing.T) {
	assert.True(t, DetectSeasonality(weeklyValues(6), 7))
	assert.False(t, DetectSeasonality(constantValues(50, 42), 7))
	assert.False(t, DetectSeasonality(weeklyValues(1), 7), "needs two full periods")
}

func TestSimpleMovingAverage(t *testing.T) {
	assert.InDelta(t, 3.0, simpleMovingAverage([]float64{1, 2, 3, 4}, 3), 1e-9)
	assert.InDelta(t, 2.5, simpleMovingAverage([]float64{1, 2, 3, 4}, 10), 1e-9)
	assert.Zero(t, simpleMovingAverage(nil, 3))
}

func TestExponentialMovingAverage(t *testing.T) {
	// ema = 0.3*20 + 0.7*10 = 13; then 0.3*30 + 0.7*13 = 18.1
	assert.InDelta(t, 18.1, exponentialMovingAverage([]float64{10, 20, 30}, 0.3), 1e-9)
}

func TestLinearRegressionForecast_ExactLine(t *testing.T) {
	// y = 2x + 5 over 10 points; 3 ahead of index 9 is x=12 -> 29.
	values := make([]float64, 10)
	for i := range values {
		values[i] = 2*float64(i) + 5
	}
	assert.InDelta(t, 29.0, linearRegressionForecast(values, 3), 1e-9)
}

func TestHoltForecast_TracksLinearTrend(t *testing.T) {
	got := holtForecast(rampValues(10, 2, 30), 5)
	// Last value 68, trend 2/day: expect roughly 78.
	assert.InDelta(t, 78, got, 5)
}

func TestHoltWintersForecast_ShortSeriesFallsBackToHolt(t *testing.T) {
	values := rampValues(10, 1, 9)
	assert.InDelta(t, holtForecast(values, 3), holtWintersForecast(values, 3, 7), 1e-9)
}

func TestWeightedRecentAverage_FavorsRecent(t *testing.T) {
	rising := weightedRecentAverage([]float64{10, 10, 10, 100})
	assert.Greater(t, rising, 50.0, "latest point dominates")

	flat := weightedRecentAverage(constantValues(42, 10))
	assert.InDelta(t, 42.0, flat, 1e-9)
}

func TestOLSFit_ZeroVarianceX(t *testing.T) {
	slope, intercept := olsFit([]float64{7})
	assert.Zero(t, slope)
	assert.InDelta(t, 7.0, intercept, 1e-9)
}

func TestRoundHelpers(t *testing.T) {
	assert.InDelta(t, 1.2, round1(1.24), 1e-9)
	assert.InDelta(t, 1.24, round2(1.236), 1e-9)
	assert.False(t, math.Signbit(round1(0.01)))
}

func TestSeries_SortedAndValues(t *testing.T) {
	s := Series{
		{Date: testStart.AddDate(0, 0, 2), Value: 3},
		{Date: testStart, Value: 1},
		{Date: testStart.AddDate(0, 0, 1), Value: 2},
	}
	require.Equal(t, []float64{1, 2, 3}, s.Values())
	assert.Equal(t, 3.0, s[0].Value, "input untouched")
}
