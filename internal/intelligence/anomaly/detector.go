// Package anomaly implements z-score based outlier detection over price and
// volume history.
package anomaly

import (
	"math"

	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

const (
	// MinHistory is the minimum number of observations required before a
	// point can be scored.
	MinHistory = 5

	// DefaultThreshold is the |z| value above which a point is flagged.
	DefaultThreshold = 2.5

	// highSeverityZ splits flagged points into HIGH and MEDIUM severity.
	highSeverityZ = 3.0
)

// Direction of a flagged observation relative to the historical mean.
const (
	DirectionHigh = "HIGH"
	DirectionLow  = "LOW"
)

// Reasons for a point that could not be scored.  Such results are not
// anomalies, but they are not a clean pass either.
const (
	ReasonInsufficientData = "Insufficient data"
	ReasonNoVariance       = "No variance in data"
)

// Result describes the evaluation of a single observation against its
// history.  Direction and DeviationPercent are only set on flagged points;
// Reason marks points the detector could not score.
type Result struct {
	IsAnomaly        bool            `json:"isAnomaly"`
	ZScore           float64         `json:"zScore"`
	Direction        string          `json:"direction,omitempty"`
	Severity         common.Severity `json:"severity,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	Mean             float64         `json:"mean"`
	StdDev           float64         `json:"stdDev"`
	ExpectedLow      float64         `json:"expectedLow"`
	ExpectedHigh     float64         `json:"expectedHigh"`
	DeviationPercent float64         `json:"deviationPercent,omitempty"`
}

// Detector flags observations whose z-score against the trailing history
// exceeds the threshold.
type Detector struct {
	threshold float64
}

// NewDetector constructs a Detector.  A non-positive threshold falls back to
// DefaultThreshold.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Detect scores value against history.  With fewer than MinHistory
// observations, or when the history has zero variance, the point is never
// flagged, the z-score is 0, and Reason records why.
func (d *Detector) Detect(value float64, history []float64) Result {
	res := Result{}
	if len(history) < MinHistory {
		res.Reason = ReasonInsufficientData
		return res
	}

	mean, std := meanStd(history)
	res.Mean = mean
	res.StdDev = std
	res.ExpectedLow = mean - d.threshold*std
	res.ExpectedHigh = mean + d.threshold*std

	if std == 0 {
		res.Reason = ReasonNoVariance
		return res
	}

	z := (value - mean) / std
	res.ZScore = z
	if math.Abs(z) > d.threshold {
		res.IsAnomaly = true
		if z > 0 {
			res.Direction = DirectionHigh
		} else {
			res.Direction = DirectionLow
		}
		if mean != 0 {
			res.DeviationPercent = math.Abs(value-mean) / mean * 100
		}
		if math.Abs(z) > highSeverityZ {
			res.Severity = common.SeverityHigh
		} else {
			res.Severity = common.SeverityMedium
		}
	}
	return res
}

// DetectSeries evaluates every point of the series against the points that
// precede it.  The returned slice is aligned with the input; the first
// MinHistory entries are never anomalies.
func (d *Detector) DetectSeries(values []float64) []Result {
	results := make([]Result, len(values))
	for i := range values {
		results[i] = d.Detect(values[i], values[:i])
	}
	return results
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
