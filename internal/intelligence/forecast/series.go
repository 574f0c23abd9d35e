// Package forecast implements demand forecasting over daily sales series:
// an ensemble of classical smoothing methods for point estimates, and a
// trainable seasonal model persisted as an artifact for dated predictions
// with confidence bands.
package forecast

import (
	"sort"
	"time"
)

// DataPoint is one daily observation of a product's demand.
type DataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a collection of observations, not necessarily ordered.
type Series []DataPoint

// Sorted returns a date-ascending copy of the series.
func (s Series) Sorted() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Values returns the observation values in date order.
func (s Series) Values() []float64 {
	sorted := s.Sorted()
	out := make([]float64, len(sorted))
	for i, p := range sorted {
		out[i] = p.Value
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return sum / float64(len(values))
}
