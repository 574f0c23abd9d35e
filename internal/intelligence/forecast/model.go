package forecast

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"time"

	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Trainable model
// ---------------------------------------------------------------------------

const (
	// MinTrainPoints is the minimum series length accepted by Fit.
	MinTrainPoints = 14

	// MinOLSPoints is the minimum series length for the linear fallback
	// used by quick trend forecasts.
	MinOLSPoints = 10

	// z95 is the z value for 95% confidence bands.
	z95 = 1.96
)

// Model method identifiers stored in artifacts.
const (
	MethodSeasonal = "holt_winters"
	MethodLinear   = "ols"
)

// Model holds the fitted parameters needed to predict forward from the end
// of the training series.  It is the payload serialized into `<id>.model`
// artifacts.
type Model struct {
	ProductID   string
	Method      string
	Level       float64
	Trend       float64
	Seasonal    []float64
	Period      int
	Slope       float64
	Intercept   float64
	DataPoints  int
	ResidualStd float64
	LastDate    time.Time
	TrainedAt   time.Time
}

// Prediction is one dated forecast point with its 95% band.
type Prediction struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// Metrics is the evaluation sidecar stored next to each model artifact.
type Metrics struct {
	ProductID  string  `json:"productId"`
	Accuracy   float64 `json:"accuracy"`
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape"`
	DataPoints int     `json:"dataPoints"`
	TrainedAt  string  `json:"trainedAt"`
	ModelPath  string  `json:"modelPath"`
}

// Fit trains a model on the series.  At least MinTrainPoints observations
// are required.  The seasonal method is used when the series shows weekly
// seasonality and covers two full periods; otherwise a linear fit is stored.
func Fit(productID string, series Series) (*Model, error) {
	sorted := series.Sorted()
	if len(sorted) < MinTrainPoints {
		return nil, errors.New(errors.ErrCodeInsufficientData,
			fmt.Sprintf("training requires at least %d data points, got %d", MinTrainPoints, len(sorted)))
	}

	values := make([]float64, len(sorted))
	for i, p := range sorted {
		values[i] = p.Value
	}

	m := &Model{
		ProductID:  productID,
		Period:     DefaultSeasonalPeriod,
		DataPoints: len(values),
		LastDate:   sorted[len(sorted)-1].Date,
		TrainedAt:  time.Now().UTC(),
	}

	if len(values) >= m.Period*2 && DetectSeasonality(values, m.Period) {
		m.Method = MethodSeasonal
		m.Level, m.Trend, m.Seasonal = holtWintersFit(values, m.Period)
	} else {
		m.Method = MethodLinear
		m.Slope, m.Intercept = olsFit(values)
	}
	m.ResidualStd = m.residualStd(values)
	return m, nil
}

// residualStd measures one-step in-sample error, used as the band width.
func (m *Model) residualStd(values []float64) float64 {
	fitted := m.fittedValues(values)
	var sum float64
	var n int
	for i, f := range fitted {
		if math.IsNaN(f) {
			continue
		}
		diff := values[i] - f
		sum += diff * diff
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func (m *Model) fittedValues(values []float64) []float64 {
	out := make([]float64, len(values))
	switch m.Method {
	case MethodSeasonal:
		// Rough in-sample reconstruction: the final level-trend line
		// projected back, reseasonalized.
		for i := range values {
			steps := float64(i - (len(values) - 1))
			base := m.Level + steps*m.Trend
			out[i] = base * m.Seasonal[i%m.Period]
		}
	default:
		for i := range values {
			out[i] = m.Intercept + m.Slope*float64(i)
		}
	}
	return out
}

// Predict emits periods dated points after the training window.  Points and
// band edges are floored at zero and rounded to two decimals.
func (m *Model) Predict(periods int) []Prediction {
	if periods <= 0 {
		return nil
	}
	out := make([]Prediction, 0, periods)
	band := z95 * m.ResidualStd
	for h := 1; h <= periods; h++ {
		var point float64
		switch m.Method {
		case MethodSeasonal:
			idx := (m.DataPoints + h - 1) % m.Period
			point = (m.Level + float64(h)*m.Trend) * m.Seasonal[idx]
		default:
			point = m.Intercept + m.Slope*float64(m.DataPoints-1+h)
		}
		out = append(out, Prediction{
			Date:      m.LastDate.AddDate(0, 0, h).Format("2006-01-02"),
			Predicted: round2(math.Max(0, point)),
			Lower:     round2(math.Max(0, point-band)),
			Upper:     round2(math.Max(0, point+band)),
		})
	}
	return out
}

// TrendDirection reports the model's drift sign.
func (m *Model) TrendDirection() common.TrendDirection {
	slope := m.Slope
	if m.Method == MethodSeasonal {
		slope = m.Trend
	}
	switch {
	case slope > 0:
		return common.TrendUp
	case slope < 0:
		return common.TrendDown
	default:
		return common.TrendStable
	}
}

// Evaluate fits on the first 80% of the series and scores one-shot
// predictions over the held-out 20%.  MAPE denominators are floored at 1 so
// zero-demand days cannot blow up the percentage.
func Evaluate(productID string, series Series) (Metrics, error) {
	sorted := series.Sorted()
	split := int(float64(len(sorted)) * 0.8)
	if split < 2 || split >= len(sorted) {
		return Metrics{}, errors.New(errors.ErrCodeInsufficientData, "series too short to evaluate")
	}

	trainModel, err := Fit(productID, sorted[:split])
	if err != nil {
		// Evaluation subset may dip under the training minimum even when
		// the full series qualifies; fall back to a linear fit.
		values := make([]float64, split)
		for i, p := range sorted[:split] {
			values[i] = p.Value
		}
		if len(values) < MinOLSPoints {
			return Metrics{}, errors.New(errors.ErrCodeInsufficientData, "series too short to evaluate")
		}
		slope, intercept := olsFit(values)
		trainModel = &Model{
			ProductID:  productID,
			Method:     MethodLinear,
			Slope:      slope,
			Intercept:  intercept,
			DataPoints: len(values),
			LastDate:   sorted[split-1].Date,
		}
	}

	test := sorted[split:]
	preds := trainModel.Predict(len(test))

	var absSum, sqSum, pctSum float64
	for i, p := range preds {
		actual := test[i].Value
		diff := math.Abs(actual - p.Predicted)
		absSum += diff
		sqSum += (actual - p.Predicted) * (actual - p.Predicted)
		pctSum += diff / math.Max(actual, 1)
	}
	n := float64(len(test))

	mae := absSum / n
	rmse := math.Sqrt(sqSum / n)
	mape := pctSum / n * 100
	return Metrics{
		ProductID:  productID,
		Accuracy:   round2(math.Max(0, 100-mape)),
		MAE:        round2(mae),
		RMSE:       round2(rmse),
		MAPE:       round2(mape),
		DataPoints: len(sorted),
		TrainedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ---------------------------------------------------------------------------
// Artifact codec
// ---------------------------------------------------------------------------

// EncodeModel serializes the model into the opaque artifact blob.
func EncodeModel(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("forecast: encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeModel deserializes an artifact blob.
func DecodeModel(data []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("forecast: decode model: %w", err)
	}
	return &m, nil
}
