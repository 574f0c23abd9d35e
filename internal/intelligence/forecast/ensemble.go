package forecast

import (
	"fmt"
	"math"

	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Ensemble forecaster
// ---------------------------------------------------------------------------

const (
	// DefaultSeasonalPeriod is weekly seasonality, the dominant cycle for
	// construction materials demand.
	DefaultSeasonalPeriod = 7

	emaAlpha  = 0.3
	holtAlpha = 0.3
	holtBeta  = 0.1
	hwGamma   = 0.2

	// seasonalityAutocorr is the lag-period autocorrelation above which the
	// series is treated as seasonal.
	seasonalityAutocorr = 0.5
)

// SeasonalityLevel labels how strong the detected seasonal component is.
type SeasonalityLevel string

const (
	SeasonalityHigh   SeasonalityLevel = "high"
	SeasonalityMedium SeasonalityLevel = "medium"
	SeasonalityNone   SeasonalityLevel = "none"
)

// MethodPrediction is one ensemble member's contribution.
type MethodPrediction struct {
	Method     string  `json:"method"`
	Prediction float64 `json:"prediction"`
	Weight     float64 `json:"weight"`
}

// EnsembleResult is the combined forecast for one horizon.
type EnsembleResult struct {
	PredictedDemand float64                `json:"predictedDemand"`
	Confidence      float64                `json:"confidence"`
	Trend           common.TrendDirection  `json:"trend"`
	Seasonality     SeasonalityLevel       `json:"seasonality"`
	Reasoning       string                 `json:"reasoning"`
	MethodBreakdown []MethodPrediction     `json:"methodBreakdown"`
}

// Ensemble combines SMA, EMA, linear regression, Holt, Holt-Winters and a
// weighted recent average.  Member weights adapt to the detected trend and
// seasonality, then are normalized.
type Ensemble struct {
	seasonalPeriod int
}

// NewEnsemble constructs an Ensemble.  A non-positive period falls back to
// DefaultSeasonalPeriod.
func NewEnsemble(seasonalPeriod int) *Ensemble {
	if seasonalPeriod <= 0 {
		seasonalPeriod = DefaultSeasonalPeriod
	}
	return &Ensemble{seasonalPeriod: seasonalPeriod}
}

// Forecast predicts demand periodsAhead steps past the end of the series.
// Fewer than 3 points yields the zero default with confidence 0.3.
func (e *Ensemble) Forecast(series Series, periodsAhead int) EnsembleResult {
	if len(series) < 3 {
		return EnsembleResult{
			Confidence:  0.3,
			Trend:       common.TrendStable,
			Seasonality: SeasonalityNone,
			Reasoning:   "insufficient data (minimum 3 points needed)",
		}
	}
	if periodsAhead <= 0 {
		periodsAhead = 1
	}

	values := series.Values()
	trend := DetectTrend(values)
	seasonal := DetectSeasonality(values, e.seasonalPeriod)

	var preds []MethodPrediction

	smaWeight := 0.15
	if trend == common.TrendStable {
		smaWeight = 0.25
	}
	window := len(values) / 2
	if window > 7 {
		window = 7
	}
	preds = append(preds, MethodPrediction{"simple_moving_average", simpleMovingAverage(values, window), smaWeight})

	preds = append(preds, MethodPrediction{"exponential_moving_average", exponentialMovingAverage(values, emaAlpha), 0.20})

	lrWeight := 0.15
	if trend != common.TrendStable {
		lrWeight = 0.25
	}
	preds = append(preds, MethodPrediction{"linear_regression", linearRegressionForecast(values, periodsAhead), lrWeight})

	if len(values) >= 5 {
		preds = append(preds, MethodPrediction{"holt_double_exponential", holtForecast(values, periodsAhead), 0.20})
	}

	if seasonal && len(values) >= e.seasonalPeriod*2 {
		preds = append(preds, MethodPrediction{"holt_winters", holtWintersForecast(values, periodsAhead, e.seasonalPeriod), 0.25})
	}

	preds = append(preds, MethodPrediction{"weighted_recent_average", weightedRecentAverage(values), 0.15})

	var totalWeight float64
	for _, p := range preds {
		totalWeight += p.Weight
	}
	for i := range preds {
		preds[i].Weight /= totalWeight
	}

	var combined float64
	memberValues := make([]float64, len(preds))
	for i, p := range preds {
		combined += p.Prediction * p.Weight
		memberValues[i] = p.Prediction
	}

	// Confidence from the spread of member predictions: tight agreement
	// means high confidence.
	memberMean := mean(memberValues)
	cv := 1.0
	if memberMean > 0 {
		cv = math.Sqrt(variance(memberValues)) / memberMean
	}
	confidence := math.Max(0.3, math.Min(0.95, 1-cv))

	seasonality := SeasonalityNone
	if seasonal {
		seasonality = SeasonalityMedium
		if cv > 0.3 {
			seasonality = SeasonalityHigh
		}
	}

	for i := range preds {
		preds[i].Prediction = round1(preds[i].Prediction)
		preds[i].Weight = round2(preds[i].Weight)
	}

	return EnsembleResult{
		PredictedDemand: math.Max(0, round1(combined)),
		Confidence:      round2(confidence),
		Trend:           trend,
		Seasonality:     seasonality,
		Reasoning:       buildReasoning(values, trend, seasonal, preds),
		MethodBreakdown: preds,
	}
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

func simpleMovingAverage(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if window < 1 {
		window = 1
	}
	if window > len(values) {
		window = len(values)
	}
	return mean(values[len(values)-window:])
}

func exponentialMovingAverage(values []float64, alpha float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ema := values[0]
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
	}
	return ema
}

// OLS fits a least-squares line over equally spaced values and returns its
// slope and intercept.  A single value yields a flat line at that value.
func OLS(values []float64) (slope, intercept float64) {
	return olsFit(values)
}

// olsFit returns the slope and intercept of a least-squares line over the
// index-value pairs.
func olsFit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if len(values) < 2 {
		if len(values) == 1 {
			return 0, values[0]
		}
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, mean(values)
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func linearRegressionForecast(values []float64, periodsAhead int) float64 {
	if len(values) < 2 {
		if len(values) == 1 {
			return values[0]
		}
		return 0
	}
	slope, intercept := olsFit(values)
	return intercept + slope*float64(len(values)-1+periodsAhead)
}

func holtForecast(values []float64, periodsAhead int) float64 {
	n := len(values)
	if n < 2 {
		if n == 1 {
			return values[0]
		}
		return 0
	}
	level := values[0]
	trend := values[1] - values[0]
	for i := 1; i < n; i++ {
		prevLevel := level
		level = holtAlpha*values[i] + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(level-prevLevel) + (1-holtBeta)*trend
	}
	return level + float64(periodsAhead)*trend
}

func holtWintersForecast(values []float64, periodsAhead, period int) float64 {
	n := len(values)
	if n < period*2 {
		return holtForecast(values, periodsAhead)
	}

	level, trend, seasonal := holtWintersFit(values, period)
	futureIdx := (n + periodsAhead - 1) % period
	return (level + float64(periodsAhead)*trend) * seasonal[futureIdx]
}

// holtWintersFit runs a multiplicative Holt-Winters pass and returns the
// final level, trend, and seasonal indices.
func holtWintersFit(values []float64, period int) (level, trend float64, seasonal []float64) {
	n := len(values)
	seasonal = make([]float64, period)

	firstSeasonMean := mean(values[:period])
	seasonDenom := firstSeasonMean
	if seasonDenom == 0 {
		seasonDenom = 1
	}
	for i := 0; i < period; i++ {
		seasonal[i] = values[i] / seasonDenom
	}

	level = firstSeasonMean
	if n >= period*2 {
		secondSeasonMean := mean(values[period : period*2])
		trend = (secondSeasonMean - firstSeasonMean) / float64(period)
	}

	for i := period; i < n; i++ {
		sIdx := i % period
		prevLevel := level
		prevSeasonal := seasonal[sIdx]
		if prevSeasonal == 0 {
			prevSeasonal = 1
		}
		level = holtAlpha*(values[i]/prevSeasonal) + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(level-prevLevel) + (1-holtBeta)*trend
		if level != 0 {
			seasonal[sIdx] = hwGamma*(values[i]/level) + (1-hwGamma)*prevSeasonal
		}
	}
	return level, trend, seasonal
}

func weightedRecentAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var weighted, totalWeight float64
	for i, v := range values {
		w := math.Pow(1.5, float64(i))
		weighted += v * w
		totalWeight += w
	}
	return weighted / totalWeight
}

// ---------------------------------------------------------------------------
// Data characteristics
// ---------------------------------------------------------------------------

// DetectTrend compares the first and second half means; a relative change
// beyond ±10% is a trend.
func DetectTrend(values []float64) common.TrendDirection {
	if len(values) < 3 {
		return common.TrendStable
	}
	half := len(values) / 2
	firstMean := mean(values[:half])
	secondMean := mean(values[half:])

	denom := firstMean
	if denom == 0 {
		denom = 1
	}
	change := (secondMean - firstMean) / denom
	switch {
	case change > 0.1:
		return common.TrendUp
	case change < -0.1:
		return common.TrendDown
	default:
		return common.TrendStable
	}
}

// DetectSeasonality reports whether the lag-period autocorrelation exceeds
// the significance threshold.
func DetectSeasonality(values []float64, period int) bool {
	if len(values) < period*2 {
		return false
	}
	m := mean(values)

	var numerator, denominator float64
	for i := 0; i < len(values)-period; i++ {
		numerator += (values[i] - m) * (values[i+period] - m)
	}
	for _, v := range values {
		denominator += (v - m) * (v - m)
	}
	if denominator <= 0 {
		return false
	}
	return numerator/denominator > seasonalityAutocorr
}

func buildReasoning(values []float64, trend common.TrendDirection, seasonal bool, preds []MethodPrediction) string {
	top := preds[0]
	for _, p := range preds[1:] {
		if p.Weight > top.Weight {
			top = p
		}
	}

	var trendNote string
	switch trend {
	case common.TrendUp:
		trendNote = "upward trend detected"
	case common.TrendDown:
		trendNote = "downward trend detected"
	default:
		trendNote = "stable demand"
	}
	seasonNote := ""
	if seasonal {
		seasonNote = ", seasonal pattern present"
	}
	return fmt.Sprintf("analyzed %d data points: %s%s; primary method %s (%.0f%% weight); historical mean %.1f",
		len(values), trendNote, seasonNote, top.Method, top.Weight*100, mean(values))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
