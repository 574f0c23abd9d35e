// Package market provides the market trend application service: moving
// average trend detection, z-score price anomaly checks, alert generation,
// linear price forecasting, and the combined buy/sell market signal.
package market

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/anomaly"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/forecast"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Domain values
// ---------------------------------------------------------------------------

// Trend is the detected direction of a price series.  Beyond the plain
// directions it carries the two degenerate states for thin history.
type Trend string

const (
	TrendUp               Trend = "UP"
	TrendDown             Trend = "DOWN"
	TrendStable           Trend = "STABLE"
	TrendInsufficientData Trend = "INSUFFICIENT_DATA"
	TrendNoData           Trend = "NO_DATA"
)

// NewsSentiment is the aggregated tone of market news for a category.
type NewsSentiment string

const (
	NewsBullish NewsSentiment = "BULLISH"
	NewsBearish NewsSentiment = "BEARISH"
	NewsNeutral NewsSentiment = "NEUTRAL"
)

// Signal is the combined market recommendation.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// AlertType classifies a market alert.
type AlertType string

const (
	AlertPriceSpike AlertType = "PRICE_SPIKE"
	AlertPriceDrop  AlertType = "PRICE_DROP"

	// Demand alerts are raised by the background scan over recorded sales;
	// CurrentPrice and ExpectedPrice carry quantities for these.
	AlertDemandSpike AlertType = "DEMAND_SPIKE"
	AlertDemandDrop  AlertType = "DEMAND_DROP"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// PricePoint is one dated price observation.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// TrendRequest asks for a trend analysis of one category.
type TrendRequest struct {
	Category     string       `json:"category,omitempty"`
	PeriodDays   int          `json:"period,omitempty"`
	PriceHistory []PricePoint `json:"priceHistory"`
}

// TrendSummary is the headline of a trend report.
type TrendSummary struct {
	Trend            Trend   `json:"trend"`
	ChangePercent    float64 `json:"changePercent"`
	CurrentAvgPrice  float64 `json:"currentAvgPrice"`
	PreviousAvgPrice float64 `json:"previousAvgPrice"`
}

// ForecastWindow is the thirty day outlook attached to a trend report.
type ForecastWindow struct {
	Prediction float64 `json:"prediction"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
	Confidence float64 `json:"confidence"`
}

// Signals pairs the technical and news reads with the combined call.
type Signals struct {
	Technical Trend         `json:"technical"`
	News      NewsSentiment `json:"news"`
	Combined  Signal        `json:"combined"`
}

// TrendReport is the full trend analysis response.
type TrendReport struct {
	Category     string         `json:"category"`
	Period       string         `json:"period"`
	Summary      TrendSummary   `json:"summary"`
	PriceHistory []PricePoint   `json:"priceHistory"`
	Forecast     ForecastWindow `json:"forecast"`
	Signals      Signals        `json:"signals"`
}

// AnomalyRequest checks one price against its history.
type AnomalyRequest struct {
	CurrentPrice     float64   `json:"currentPrice"`
	HistoricalPrices []float64 `json:"historicalPrices"`
	Threshold        float64   `json:"threshold,omitempty"`
}

// ProductSnapshot is the input for alert generation: a product's current
// price plus its trailing history.
type ProductSnapshot struct {
	ProductID    string       `json:"productId"`
	ProductName  string       `json:"productName"`
	CurrentPrice float64      `json:"currentPrice"`
	PriceHistory []PricePoint `json:"priceHistory"`
}

// Alert is one market alert.
type Alert struct {
	ID            string          `json:"id"`
	Type          AlertType       `json:"type"`
	Severity      common.Severity `json:"severity"`
	Product       string          `json:"product"`
	Message       string          `json:"message"`
	CurrentPrice  float64         `json:"currentPrice"`
	ExpectedPrice float64         `json:"expectedPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// AlertSummary counts alerts by severity.
type AlertSummary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// AlertsResult is the alert generation response.
type AlertsResult struct {
	Alerts  []Alert      `json:"alerts"`
	Summary AlertSummary `json:"summary"`
}

// ForecastRequest asks for a price forecast over raw values.
type ForecastRequest struct {
	Prices  []float64 `json:"prices"`
	Periods int       `json:"periods,omitempty"`
}

// SimpleForecast is the linear regression forecast response.
type SimpleForecast struct {
	Forecast       []float64             `json:"forecast"`
	LowerBound     []float64             `json:"lowerBound"`
	UpperBound     []float64             `json:"upperBound"`
	Model          string                `json:"model"`
	TrendDirection common.TrendDirection `json:"trendDirection"`
	DailyChange    float64               `json:"dailyChange"`
	DataPoints     int                   `json:"dataPoints"`
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// AlertPublisher pushes generated alerts to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, alerts []Alert) error
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service analyzes market price series.
type Service interface {
	AnalyzeTrends(ctx context.Context, req TrendRequest) (TrendReport, error)
	DetectAnomaly(ctx context.Context, req AnomalyRequest) (anomaly.Result, error)
	GenerateAlerts(ctx context.Context, products []ProductSnapshot) (AlertsResult, error)
	Forecast(ctx context.Context, req ForecastRequest) (SimpleForecast, error)
	MarketSignal(trend Trend, news NewsSentiment) Signal
}

// Deps holds all dependencies.  Publisher is optional; when set, generated
// alerts are pushed to it best-effort.
type Deps struct {
	Detector  *anomaly.Detector
	Publisher AlertPublisher
	Logger    logging.Logger
	Now       func() time.Time
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

const (
	// Trend thresholds in percent change between the long and short
	// moving averages.
	trendUpThreshold   = 3.0
	trendDownThreshold = -3.0

	trendWindow       = 7
	defaultPeriodDays = 30
	defaultCategory   = "all"

	// historyEcho limits how many trailing price points a trend report
	// echoes back.
	historyEcho = 10

	forecastPeriods = 30
	minForecastData = 10
	z95             = 1.96

	// trendForecastConfidence is the fixed confidence attached to the
	// thirty day outlook inside a trend report.
	trendForecastConfidence = 0.75

	// alertSeverityZ splits alerts into HIGH and MEDIUM severity.
	alertSeverityZ = 3.0
)

// signalMatrix maps the technical trend and news tone to a recommendation.
// Unlisted combinations resolve to HOLD.
var signalMatrix = map[Trend]map[NewsSentiment]Signal{
	TrendUp: {
		NewsBullish: SignalStrongBuy,
		NewsNeutral: SignalBuy,
		NewsBearish: SignalHold,
	},
	TrendStable: {
		NewsBullish: SignalBuy,
		NewsNeutral: SignalHold,
		NewsBearish: SignalHold,
	},
	TrendDown: {
		NewsBullish: SignalHold,
		NewsNeutral: SignalSell,
		NewsBearish: SignalStrongSell,
	},
}

type serviceImpl struct {
	detector  *anomaly.Detector
	publisher AlertPublisher
	logger    logging.Logger
	now       func() time.Time
}

// NewService creates a market analysis Service.
func NewService(deps Deps) Service {
	detector := deps.Detector
	if detector == nil {
		detector = anomaly.NewDetector(anomaly.DefaultThreshold)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &serviceImpl{
		detector:  detector,
		publisher: deps.Publisher,
		logger:    logger.Named("market"),
		now:       now,
	}
}

func (s *serviceImpl) AnalyzeTrends(ctx context.Context, req TrendRequest) (TrendReport, error) {
	category := req.Category
	if category == "" {
		category = defaultCategory
	}
	period := req.PeriodDays
	if period <= 0 {
		period = defaultPeriodDays
	}

	report := TrendReport{
		Category: category,
		Period:   fmt.Sprintf("%dd", period),
		Signals:  Signals{Technical: TrendNoData, News: NewsNeutral, Combined: SignalHold},
	}
	if len(req.PriceHistory) == 0 {
		report.Summary.Trend = TrendNoData
		return report, nil
	}

	prices := make([]float64, len(req.PriceHistory))
	for i, p := range req.PriceHistory {
		prices[i] = p.Price
	}

	window := trendWindow
	if half := len(prices) / 2; half < window {
		window = half
	}
	trend, changePct := detectTrend(prices, window)

	half := len(prices) / 2
	currentAvg := meanOf(prices)
	previousAvg := currentAvg
	if half > 0 {
		currentAvg = meanOf(prices[half:])
		previousAvg = meanOf(prices[:half])
	}

	report.Summary = TrendSummary{
		Trend:            trend,
		ChangePercent:    round2(changePct),
		CurrentAvgPrice:  math.Round(currentAvg),
		PreviousAvgPrice: math.Round(previousAvg),
	}

	echo := req.PriceHistory
	if len(echo) > historyEcho {
		echo = echo[len(echo)-historyEcho:]
	}
	report.PriceHistory = echo

	report.Forecast = ForecastWindow{Confidence: trendForecastConfidence}
	if fc, err := s.forecastLinear(prices, forecastPeriods); err == nil {
		last := len(fc.Forecast) - 1
		report.Forecast.Prediction = fc.Forecast[last]
		report.Forecast.LowerBound = fc.LowerBound[last]
		report.Forecast.UpperBound = fc.UpperBound[last]
	}

	report.Signals = Signals{
		Technical: trend,
		News:      NewsNeutral,
		Combined:  s.MarketSignal(trend, NewsNeutral),
	}

	s.logger.Info("trend analyzed",
		logging.String("category", category),
		logging.String("trend", string(trend)),
		logging.Float64("changePercent", report.Summary.ChangePercent))
	return report, nil
}

func (s *serviceImpl) DetectAnomaly(ctx context.Context, req AnomalyRequest) (anomaly.Result, error) {
	if req.CurrentPrice == 0 {
		return anomaly.Result{}, errors.NewValidationError("currentPrice", "current price is required")
	}
	if len(req.HistoricalPrices) == 0 {
		return anomaly.Result{}, errors.NewValidationError("historicalPrices", "historical prices are required")
	}

	detector := s.detector
	if req.Threshold > 0 {
		detector = anomaly.NewDetector(req.Threshold)
	}
	return detector.Detect(req.CurrentPrice, req.HistoricalPrices), nil
}

func (s *serviceImpl) GenerateAlerts(ctx context.Context, products []ProductSnapshot) (AlertsResult, error) {
	var alerts []Alert
	stamp := s.now().Format("20060102")

	for _, product := range products {
		if len(product.PriceHistory) < anomaly.MinHistory {
			continue
		}
		history := make([]float64, len(product.PriceHistory))
		for i, p := range product.PriceHistory {
			history[i] = p.Price
		}

		res := s.detector.Detect(product.CurrentPrice, history)
		if !res.IsAnomaly {
			continue
		}

		severity := common.SeverityMedium
		if math.Abs(res.ZScore) > alertSeverityZ {
			severity = common.SeverityHigh
		}
		alertType := AlertPriceDrop
		direction := "giảm"
		if res.Direction == anomaly.DirectionHigh {
			alertType = AlertPriceSpike
			direction = "tăng"
		}

		var changePct float64
		if res.Mean > 0 {
			changePct = (product.CurrentPrice - res.Mean) / res.Mean * 100
		}

		name := product.ProductName
		if name == "" {
			name = "Unknown"
		}
		id := product.ProductID
		if id == "" {
			id = "unknown"
		}

		alerts = append(alerts, Alert{
			ID:            fmt.Sprintf("alert_%s_%s", id, stamp),
			Type:          alertType,
			Severity:      severity,
			Product:       name,
			Message: fmt.Sprintf(
				"Giá %s %.1f%% so với trung bình, vượt ngưỡng bình thường",
				direction, math.Abs(changePct)),
			CurrentPrice:  product.CurrentPrice,
			ExpectedPrice: math.Round(res.Mean),
			CreatedAt:     s.now(),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return common.SeverityRank(alerts[i].Severity) < common.SeverityRank(alerts[j].Severity)
	})

	summary := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case common.SeverityCritical:
			summary.Critical++
		case common.SeverityHigh:
			summary.High++
		case common.SeverityMedium:
			summary.Medium++
		}
	}

	if s.publisher != nil && len(alerts) > 0 {
		if err := s.publisher.Publish(ctx, alerts); err != nil {
			s.logger.Warn("alert publish failed",
				logging.Int("alerts", len(alerts)),
				logging.Err(err))
		}
	}

	s.logger.Info("alerts generated",
		logging.Int("scanned", len(products)),
		logging.Int("alerts", len(alerts)))
	return AlertsResult{Alerts: alerts, Summary: summary}, nil
}

func (s *serviceImpl) Forecast(ctx context.Context, req ForecastRequest) (SimpleForecast, error) {
	if len(req.Prices) == 0 {
		return SimpleForecast{}, errors.NewValidationError("prices", "prices are required")
	}
	periods := req.Periods
	if periods <= 0 {
		periods = forecastPeriods
	}
	return s.forecastLinear(req.Prices, periods)
}

// MarketSignal combines the technical trend with the news tone.
func (s *serviceImpl) MarketSignal(trend Trend, news NewsSentiment) Signal {
	if row, ok := signalMatrix[trend]; ok {
		if signal, ok := row[news]; ok {
			return signal
		}
	}
	return SignalHold
}

// forecastLinear projects prices forward along a least-squares line with a
// flat 95 percent band derived from the historical spread.
func (s *serviceImpl) forecastLinear(prices []float64, periods int) (SimpleForecast, error) {
	if len(prices) < minForecastData {
		return SimpleForecast{}, errors.New(errors.ErrCodeInsufficientData,
			fmt.Sprintf("need at least %d data points, got %d", minForecastData, len(prices)))
	}

	slope, intercept := forecast.OLS(prices)
	_, std := meanStdOf(prices)

	n := len(prices)
	out := SimpleForecast{
		Forecast:       make([]float64, 0, periods),
		LowerBound:     make([]float64, 0, periods),
		UpperBound:     make([]float64, 0, periods),
		Model:          "LinearRegression",
		TrendDirection: slopeDirection(slope),
		DailyChange:    round2(slope),
		DataPoints:     n,
	}
	for i := 0; i < periods; i++ {
		pred := math.Max(0, intercept+slope*float64(n+i))
		out.Forecast = append(out.Forecast, math.Round(pred))
		out.LowerBound = append(out.LowerBound, math.Round(math.Max(0, pred-z95*std)))
		out.UpperBound = append(out.UpperBound, math.Round(pred+z95*std))
	}
	return out, nil
}

// detectTrend compares the short moving average with the preceding window.
func detectTrend(prices []float64, window int) (Trend, float64) {
	if window < 1 || len(prices) < window*2 {
		return TrendInsufficientData, 0
	}

	shortMA := meanOf(prices[len(prices)-window:])
	longMA := meanOf(prices[len(prices)-window*2 : len(prices)-window])
	if longMA == 0 {
		return TrendStable, 0
	}

	changePct := (shortMA - longMA) / longMA * 100
	switch {
	case changePct > trendUpThreshold:
		return TrendUp, changePct
	case changePct < trendDownThreshold:
		return TrendDown, changePct
	default:
		return TrendStable, changePct
	}
}

func slopeDirection(slope float64) common.TrendDirection {
	switch {
	case slope > 0:
		return common.TrendUp
	case slope < 0:
		return common.TrendDown
	default:
		return common.TrendStable
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanStdOf(values []float64) (float64, float64) {
	mean := meanOf(values)
	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
