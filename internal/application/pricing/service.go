// Package pricing provides the dynamic pricing application service.
// The optimal price is the base price scaled by multiplicative demand,
// inventory, competitor, and time factors, then clamped to margin and
// maximum-change constraints.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// Product carries the pricing inputs for one product.  Optional fields are
// pointers; absent values fall to engine defaults and lower the confidence.
type Product struct {
	ProductID          string   `json:"productId"`
	ProductName        string   `json:"productName,omitempty"`
	BasePrice          float64  `json:"basePrice"`
	Cost               float64  `json:"cost,omitempty"`
	Category           string   `json:"category,omitempty"`
	CurrentStock       *float64 `json:"currentStock,omitempty"`
	AvgDailySales      *float64 `json:"avgDailySales,omitempty"`
	DemandIndex        *float64 `json:"demandIndex,omitempty"`
	CompetitorAvgPrice *float64 `json:"competitorAvgPrice,omitempty"`
}

// Constraints bounds the recommendation.  Zero values take the defaults.
type Constraints struct {
	MinMargin       float64 `json:"minMargin,omitempty"`
	MaxPriceChange  float64 `json:"maxPriceChange,omitempty"`
	CompetitorMatch *bool   `json:"competitorMatch,omitempty"`
}

// FactorDetail is one multiplicative factor with its explanation.
type FactorDetail struct {
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// Factors groups the price multipliers.
type Factors struct {
	Demand     FactorDetail `json:"demand"`
	Inventory  FactorDetail `json:"inventory"`
	Competitor FactorDetail `json:"competitor"`
	Time       FactorDetail `json:"time"`
	Combined   float64      `json:"combined"`
}

// Projections estimates the demand and revenue effect of the change using
// category price elasticity.
type Projections struct {
	ExpectedDemand  float64 `json:"expectedDemand"`
	ExpectedRevenue float64 `json:"expectedRevenue"`
	ExpectedProfit  float64 `json:"expectedProfit"`
	Confidence      float64 `json:"confidence"`
}

// ConstraintsReport describes how the clamps applied.
type ConstraintsReport struct {
	MarginAchieved    float64 `json:"marginAchieved"`
	WithinPriceBounds bool    `json:"withinPriceBounds"`
	MinPriceApplied   bool    `json:"minPriceApplied"`
}

// Recommendation is the pricing result for one product.
type Recommendation struct {
	ProductID          string            `json:"productId"`
	ProductName        string            `json:"productName"`
	CurrentPrice       float64           `json:"currentPrice"`
	RecommendedPrice   float64           `json:"recommendedPrice"`
	PriceChangePercent float64           `json:"priceChangePercent"`
	Factors            Factors           `json:"factors"`
	Projections        Projections       `json:"projections"`
	Constraints        ConstraintsReport `json:"constraints"`
}

// BatchSummary counts recommendation directions.
type BatchSummary struct {
	Total     int `json:"total"`
	Increases int `json:"increases"`
	Decreases int `json:"decreases"`
	Unchanged int `json:"unchanged"`
}

// BatchResult is the batch recommendation response.
type BatchResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         BatchSummary     `json:"summary"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service computes price recommendations.
type Service interface {
	Recommend(ctx context.Context, product Product, constraints *Constraints) (*Recommendation, error)
	RecommendBatch(ctx context.Context, products []Product, constraints *Constraints) (*BatchResult, error)
	ElasticityTable() map[string]float64
}

// Deps holds all dependencies.
type Deps struct {
	Logger logging.Logger
	// Now overrides the reference date for the time factor; nil means time.Now.
	Now func() time.Time
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// Default constraints and engine fallbacks.
const (
	defaultMinMargin      = 0.15
	defaultMaxPriceChange = 0.25
	defaultStock          = 100.0
	defaultDailySales     = 5.0
	defaultDemandIndex    = 1.0

	// costMarginEstimate derives a cost when none is given.
	costMarginEstimate = 0.7
)

// elasticityByCategory holds absolute price elasticities per VLXD category.
var elasticityByCategory = map[string]float64{
	"xi_mang":        0.8,
	"thep":           1.2,
	"cat_da":         0.6,
	"gach_trang_tri": 1.5,
	"son":            1.3,
	"default":        1.0,
}

// constructionSeason spans March to October.
var constructionSeason = map[time.Month]bool{
	time.March: true, time.April: true, time.May: true, time.June: true,
	time.July: true, time.August: true, time.September: true, time.October: true,
}

type serviceImpl struct {
	logger logging.Logger
	now    func() time.Time
}

// NewService creates a dynamic pricing Service.
func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &serviceImpl{logger: logger.Named("pricing"), now: now}
}

func (s *serviceImpl) Recommend(ctx context.Context, product Product, constraints *Constraints) (*Recommendation, error) {
	if product.ProductID == "" {
		return nil, errors.NewValidationError("productId", "productId is required")
	}
	if product.BasePrice <= 0 {
		return nil, errors.NewValidationError("basePrice", "basePrice must be positive")
	}

	minMargin := defaultMinMargin
	maxChange := defaultMaxPriceChange
	competitorMatch := true
	if constraints != nil {
		if constraints.MinMargin > 0 {
			minMargin = constraints.MinMargin
		}
		if constraints.MaxPriceChange > 0 {
			maxChange = constraints.MaxPriceChange
		}
		if constraints.CompetitorMatch != nil {
			competitorMatch = *constraints.CompetitorMatch
		}
	}

	basePrice := product.BasePrice
	cost := product.Cost
	if cost <= 0 {
		cost = basePrice * costMarginEstimate
	}

	demandIndex := valueOr(product.DemandIndex, defaultDemandIndex)
	stock := valueOr(product.CurrentStock, defaultStock)
	dailySales := valueOr(product.AvgDailySales, defaultDailySales)
	competitorPrice := valueOr(product.CompetitorAvgPrice, 0)

	strategy := "MATCH"
	if !competitorMatch {
		strategy = "PREMIUM"
	}

	demand := demandFactor(demandIndex)
	inventory := inventoryFactor(stock, dailySales)
	competitor := competitorFactor(basePrice, competitorPrice, strategy)
	timeF := timeFactor(s.now())

	combined := demand.Value * inventory.Value * competitor.Value * timeF.Value
	optimalPrice := basePrice * combined

	minPrice := cost * (1 + minMargin)
	maxPrice := basePrice * (1 + maxChange)
	minPriceByChange := basePrice * (1 - maxChange)

	// The margin floor is applied before the downward change bound, so a
	// high-cost product can end above basePrice*(1-maxChange) even when the
	// factors push lower.
	finalPrice := math.Max(minPrice, math.Min(optimalPrice, maxPrice))
	finalPrice = math.Max(finalPrice, minPriceByChange)
	finalPrice = math.Round(finalPrice/1000) * 1000

	priceChangePct := 0.0
	if basePrice > 0 {
		priceChangePct = (finalPrice - basePrice) / basePrice
	}
	marginAchieved := 0.0
	if finalPrice > 0 {
		marginAchieved = (finalPrice - cost) / finalPrice
	}

	elasticity := elasticityByCategory["default"]
	if e, ok := elasticityByCategory[product.Category]; ok {
		elasticity = e
	}
	demandChange := -elasticity * priceChangePct
	expectedDemand := dailySales * (1 + demandChange)
	expectedRevenue := finalPrice * expectedDemand
	expectedProfit := (finalPrice - cost) * expectedDemand

	dataPoints := 0
	for _, present := range []bool{
		product.DemandIndex != nil && *product.DemandIndex != 0,
		product.CurrentStock != nil && *product.CurrentStock != 0,
		product.CompetitorAvgPrice != nil && *product.CompetitorAvgPrice != 0,
		product.AvgDailySales != nil && *product.AvgDailySales != 0,
	} {
		if present {
			dataPoints++
		}
	}
	confidence := 0.5 + float64(dataPoints)*0.1

	s.logger.Debug("price recommendation",
		logging.String("product_id", product.ProductID),
		logging.Float64("base_price", basePrice),
		logging.Float64("recommended", finalPrice))

	return &Recommendation{
		ProductID:          product.ProductID,
		ProductName:        productNameOr(product.ProductName),
		CurrentPrice:       basePrice,
		RecommendedPrice:   finalPrice,
		PriceChangePercent: math.Round(priceChangePct*1000) / 10,
		Factors: Factors{
			Demand:     demand,
			Inventory:  inventory,
			Competitor: competitor,
			Time:       timeF,
			Combined:   round3(combined),
		},
		Projections: Projections{
			ExpectedDemand:  math.Round(expectedDemand*10) / 10,
			ExpectedRevenue: math.Round(expectedRevenue),
			ExpectedProfit:  math.Round(expectedProfit),
			Confidence:      math.Round(confidence*100) / 100,
		},
		Constraints: ConstraintsReport{
			MarginAchieved:    round3(marginAchieved),
			WithinPriceBounds: finalPrice >= minPriceByChange && finalPrice <= maxPrice,
			MinPriceApplied:   finalPrice == minPrice,
		},
	}, nil
}

func (s *serviceImpl) RecommendBatch(ctx context.Context, products []Product, constraints *Constraints) (*BatchResult, error) {
	if len(products) == 0 {
		return nil, errors.NewValidationError("products", "at least one product is required")
	}

	recs := make([]Recommendation, 0, len(products))
	summary := BatchSummary{Total: len(products)}
	for i, p := range products {
		rec, err := s.Recommend(ctx, p, constraints)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeScoringFailed,
				fmt.Sprintf("product at index %d", i))
		}
		recs = append(recs, *rec)
		switch {
		case rec.PriceChangePercent > 0:
			summary.Increases++
		case rec.PriceChangePercent < 0:
			summary.Decreases++
		default:
			summary.Unchanged++
		}
	}
	return &BatchResult{Recommendations: recs, Summary: summary}, nil
}

// ElasticityTable returns the category elasticity map.
func (s *serviceImpl) ElasticityTable() map[string]float64 {
	out := make(map[string]float64, len(elasticityByCategory))
	for k, v := range elasticityByCategory {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Factors
// ---------------------------------------------------------------------------

func demandFactor(demandIndex float64) FactorDetail {
	switch {
	case demandIndex > 1.5:
		return FactorDetail{1.15, "Very high demand (+15%)"}
	case demandIndex > 1.2:
		return FactorDetail{1.08, "High demand (+8%)"}
	case demandIndex > 0.8:
		return FactorDetail{1.00, "Normal demand"}
	case demandIndex > 0.5:
		return FactorDetail{0.95, "Low demand (-5%)"}
	default:
		return FactorDetail{0.90, "Very low demand (-10%)"}
	}
}

func inventoryFactor(stock, avgDailySales float64) FactorDetail {
	daysOfStock := 999.0
	if avgDailySales > 0 {
		daysOfStock = stock / avgDailySales
	}
	switch {
	case daysOfStock < 7:
		return FactorDetail{1.10, fmt.Sprintf("Low stock (%.0f days) - increase price", daysOfStock)}
	case daysOfStock > 60:
		return FactorDetail{0.92, fmt.Sprintf("Overstock (%.0f days) - reduce price", daysOfStock)}
	case daysOfStock > 45:
		return FactorDetail{0.96, fmt.Sprintf("High stock (%.0f days) - slight reduction", daysOfStock)}
	default:
		return FactorDetail{1.00, fmt.Sprintf("Healthy stock (%.0f days)", daysOfStock)}
	}
}

func competitorFactor(ourPrice, competitorAvgPrice float64, strategy string) FactorDetail {
	if competitorAvgPrice <= 0 {
		return FactorDetail{1.00, "No competitor data"}
	}
	priceRatio := ourPrice / competitorAvgPrice

	targetRatio := 1.00
	switch strategy {
	case "PREMIUM":
		targetRatio = 1.10
	case "UNDERCUT":
		targetRatio = 0.95
	}

	adjustment := targetRatio / priceRatio
	adjustment = math.Max(0.85, math.Min(1.15, adjustment))

	reason := "Aligned with market"
	if adjustment > 1.02 {
		reason = fmt.Sprintf("Below competitor (%.0f%%) - raise price", priceRatio*100)
	} else if adjustment < 0.98 {
		reason = fmt.Sprintf("Above competitor (%.0f%%) - lower price", priceRatio*100)
	}
	return FactorDetail{adjustment, reason}
}

func timeFactor(date time.Time) FactorDetail {
	multiplier := 1.00
	var reasons []string

	if constructionSeason[date.Month()] {
		multiplier *= 1.05
		reasons = append(reasons, "Construction season (+5%)")
	} else {
		multiplier *= 0.98
		reasons = append(reasons, "Off-season (-2%)")
	}
	if date.Day() <= 5 {
		multiplier *= 0.98
		reasons = append(reasons, "Month start - wholesale period")
	}
	switch date.Month() {
	case time.March, time.June, time.September, time.December:
		if date.Day() >= 25 {
			multiplier *= 1.03
			reasons = append(reasons, "Quarter end - budget rush")
		}
	}

	reason := ""
	for i, r := range reasons {
		if i > 0 {
			reason += ", "
		}
		reason += r
	}
	return FactorDetail{round3(multiplier), reason}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func productNameOr(name string) string {
	if name == "" {
		return "Unknown Product"
	}
	return name
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
