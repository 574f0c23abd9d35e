// Package churn provides the customer churn prediction application service.
// Churn probability is a weighted blend of RFM and behavioral risk signals,
// each normalized to [0,1] through a threshold ladder.
package churn

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// CustomerFeatures carries the per-customer inputs to a churn prediction.
// Zero values are valid and fall onto the conservative rungs of each ladder.
type CustomerFeatures struct {
	CustomerID     string     `json:"customerId"`
	LastOrderDate  *time.Time `json:"lastOrderDate,omitempty"`
	Orders12M      int        `json:"orders12m"`
	TotalSpent12M  float64    `json:"totalSpent12m"`
	Recent3MSpent  float64    `json:"recent3mSpent"`
	Previous3MSpent float64   `json:"previous3mSpent"`
	HasReviews     bool       `json:"hasReviews"`
	AvgRatingGiven float64    `json:"avgRatingGiven"`
	SupportTickets int        `json:"supportTickets"`
	ComplaintRatio float64    `json:"complaintRatio"`
}

// RiskFactor explains one contribution to the churn probability.
type RiskFactor struct {
	Factor string             `json:"factor"`
	Impact common.ImpactLevel `json:"impact"`
	Score  float64            `json:"score"`
}

// RFMScores exposes the individual risk components.
type RFMScores struct {
	RecencyRisk    float64 `json:"recencyRisk"`
	FrequencyRisk  float64 `json:"frequencyRisk"`
	MonetaryRisk   float64 `json:"monetaryRisk"`
	TrendRisk      float64 `json:"trendRisk"`
	EngagementRisk float64 `json:"engagementRisk"`
}

// Prediction is the churn assessment for one customer.
type Prediction struct {
	CustomerID       string          `json:"customerId"`
	ChurnProbability float64         `json:"churnProbability"`
	RiskLevel        common.RiskTier `json:"riskLevel"`
	RiskFactors      []RiskFactor    `json:"riskFactors"`
	Recommendation   string          `json:"recommendation"`
	RFMScores        RFMScores       `json:"rfmScores"`
}

// AtRiskRequest selects customers above a churn probability threshold.
type AtRiskRequest struct {
	Customers      []CustomerFeatures `json:"customers"`
	MinProbability float64            `json:"minProbability,omitempty"`
	Limit          int                `json:"limit,omitempty"`
}

// AtRiskSummary counts at-risk customers by tier.
type AtRiskSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// AtRiskResult is the at-risk listing response.
type AtRiskResult struct {
	TotalAtRisk int           `json:"totalAtRisk"`
	Customers   []Prediction  `json:"customers"`
	Summary     AtRiskSummary `json:"summary"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service predicts customer churn risk.
type Service interface {
	Predict(ctx context.Context, features CustomerFeatures) (*Prediction, error)
	PredictBatch(ctx context.Context, customers []CustomerFeatures) ([]Prediction, error)
	AtRisk(ctx context.Context, req AtRiskRequest) (*AtRiskResult, error)
}

// Deps holds all dependencies.
type Deps struct {
	Logger logging.Logger
	// Now overrides the reference time for recency; nil means time.Now.
	Now func() time.Time
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// Component weights of the churn probability.
const (
	weightRecency    = 0.30
	weightFrequency  = 0.25
	weightMonetary   = 0.15
	weightTrend      = 0.20
	weightEngagement = 0.10

	// avgCustomerSpend12M anchors the monetary ratio (VND).
	avgCustomerSpend12M = 10_000_000

	defaultMinProbability = 0.6
	defaultAtRiskLimit    = 50
)

var tierRecommendations = map[common.RiskTier]string{
	common.RiskCritical: "Gọi điện trực tiếp + Giảm giá 20% cho đơn tiếp theo",
	common.RiskHigh:     "Gửi email khuyến mãi + Giảm giá 15%",
	common.RiskMedium:   "Push notification + Giảm giá 10%",
	common.RiskLow:      "Gửi newsletter thông thường",
}

type serviceImpl struct {
	logger logging.Logger
	now    func() time.Time
}

// NewService creates a churn prediction Service.
func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &serviceImpl{logger: logger.Named("churn"), now: now}
}

func (s *serviceImpl) Predict(ctx context.Context, features CustomerFeatures) (*Prediction, error) {
	if features.CustomerID == "" {
		return nil, errors.NewValidationError("customerId", "customerId is required")
	}

	daysSinceLast := s.daysSinceLastOrder(features.LastOrderDate)
	trendSpending := spendingTrend(features.Recent3MSpent, features.Previous3MSpent)

	recency := recencyRisk(daysSinceLast)
	frequency := frequencyRisk(features.Orders12M)
	monetary := monetaryRisk(features.TotalSpent12M)
	trend := trendRisk(trendSpending)
	engagement := engagementRisk(features)

	probability := weightRecency*recency +
		weightFrequency*frequency +
		weightMonetary*monetary +
		weightTrend*trend +
		weightEngagement*engagement
	probability = math.Max(0, math.Min(1, probability))

	tier := riskTier(probability)
	factors := riskFactors(recency, frequency, trend, engagement, daysSinceLast, trendSpending)

	s.logger.Debug("churn prediction",
		logging.String("customer_id", features.CustomerID),
		logging.Float64("probability", probability),
		logging.String("risk_level", string(tier)))

	return &Prediction{
		CustomerID:       features.CustomerID,
		ChurnProbability: round3(probability),
		RiskLevel:        tier,
		RiskFactors:      factors,
		Recommendation:   tierRecommendations[tier],
		RFMScores: RFMScores{
			RecencyRisk:    round3(recency),
			FrequencyRisk:  round3(frequency),
			MonetaryRisk:   round3(monetary),
			TrendRisk:      round3(trend),
			EngagementRisk: round3(engagement),
		},
	}, nil
}

func (s *serviceImpl) PredictBatch(ctx context.Context, customers []CustomerFeatures) ([]Prediction, error) {
	if len(customers) == 0 {
		return nil, errors.NewValidationError("customers", "at least one customer is required")
	}
	out := make([]Prediction, 0, len(customers))
	for i, c := range customers {
		p, err := s.Predict(ctx, c)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeScoringFailed,
				fmt.Sprintf("customer at index %d", i))
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *serviceImpl) AtRisk(ctx context.Context, req AtRiskRequest) (*AtRiskResult, error) {
	minProbability := req.MinProbability
	if minProbability <= 0 {
		minProbability = defaultMinProbability
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultAtRiskLimit
	}

	predictions, err := s.PredictBatch(ctx, req.Customers)
	if err != nil {
		return nil, err
	}

	atRisk := make([]Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.ChurnProbability >= minProbability {
			atRisk = append(atRisk, p)
		}
	}
	sort.SliceStable(atRisk, func(i, j int) bool {
		return atRisk[i].ChurnProbability > atRisk[j].ChurnProbability
	})
	if len(atRisk) > limit {
		atRisk = atRisk[:limit]
	}

	summary := AtRiskSummary{}
	for _, p := range atRisk {
		switch p.RiskLevel {
		case common.RiskCritical:
			summary.Critical++
		case common.RiskHigh:
			summary.High++
		case common.RiskMedium:
			summary.Medium++
		}
	}

	s.logger.Info("at-risk listing",
		logging.Int("evaluated", len(predictions)),
		logging.Int("at_risk", len(atRisk)))

	return &AtRiskResult{
		TotalAtRisk: len(atRisk),
		Customers:   atRisk,
		Summary:     summary,
	}, nil
}

// ---------------------------------------------------------------------------
// Risk ladders
// ---------------------------------------------------------------------------

// daysSinceLastOrder defaults a missing last order to 180 days ago.
func (s *serviceImpl) daysSinceLastOrder(last *time.Time) int {
	if last == nil {
		return 180
	}
	days := int(s.now().Sub(*last).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// spendingTrend is the relative change between the recent and previous
// quarter; no previous spend reads as a moderate decline.
func spendingTrend(recent, previous float64) float64 {
	if previous <= 0 {
		return -0.5
	}
	return (recent - previous) / previous
}

func recencyRisk(days int) float64 {
	switch {
	case days <= 30:
		return 0.0
	case days <= 60:
		return 0.2
	case days <= 90:
		return 0.5
	case days <= 120:
		return 0.8
	default:
		return 1.0
	}
}

func frequencyRisk(orders12M int) float64 {
	switch {
	case orders12M >= 12:
		return 0.0
	case orders12M >= 6:
		return 0.2
	case orders12M >= 3:
		return 0.4
	case orders12M >= 1:
		return 0.7
	default:
		return 1.0
	}
}

func monetaryRisk(totalSpent12M float64) float64 {
	ratio := totalSpent12M / avgCustomerSpend12M
	switch {
	case ratio >= 2.0:
		return 0.0
	case ratio >= 1.2:
		return 0.2
	case ratio >= 0.8:
		return 0.4
	case ratio >= 0.4:
		return 0.6
	default:
		return 0.8
	}
}

func trendRisk(trendSpending float64) float64 {
	switch {
	case trendSpending > 0.1:
		return 0.0
	case trendSpending > -0.1:
		return 0.3
	case trendSpending > -0.3:
		return 0.6
	default:
		return 1.0
	}
}

func engagementRisk(f CustomerFeatures) float64 {
	risk := 0.5
	if f.HasReviews {
		risk -= 0.2
		if f.AvgRatingGiven > 0 {
			if f.AvgRatingGiven < 3.0 {
				risk += 0.3
			} else if f.AvgRatingGiven >= 4.0 {
				risk -= 0.1
			}
		}
	}
	if f.ComplaintRatio > 0.3 {
		risk += 0.3
	} else if f.ComplaintRatio > 0.1 {
		risk += 0.1
	}
	return math.Max(0, math.Min(1, risk))
}

func riskTier(probability float64) common.RiskTier {
	switch {
	case probability < 0.4:
		return common.RiskLow
	case probability < 0.6:
		return common.RiskMedium
	case probability < 0.8:
		return common.RiskHigh
	default:
		return common.RiskCritical
	}
}

func riskFactors(recency, frequency, trend, engagement float64, daysSinceLast int, trendSpending float64) []RiskFactor {
	var factors []RiskFactor

	if recency > 0.5 {
		impact := common.ImpactMedium
		if recency > 0.7 {
			impact = common.ImpactHigh
		}
		factors = append(factors, RiskFactor{
			Factor: fmt.Sprintf("%d ngày chưa đặt hàng", daysSinceLast),
			Impact: impact,
			Score:  recency,
		})
	}
	if trend > 0.5 {
		impact := common.ImpactMedium
		if trend > 0.7 {
			impact = common.ImpactHigh
		}
		factors = append(factors, RiskFactor{
			Factor: fmt.Sprintf("Xu hướng chi tiêu giảm %.0f%%", math.Abs(trendSpending*100)),
			Impact: impact,
			Score:  trend,
		})
	}
	if frequency > 0.5 {
		factors = append(factors, RiskFactor{
			Factor: "Tần suất đặt hàng thấp",
			Impact: common.ImpactMedium,
			Score:  frequency,
		})
	}
	if engagement > 0.5 {
		factors = append(factors, RiskFactor{
			Factor: "Mức độ tương tác thấp",
			Impact: common.ImpactLow,
			Score:  engagement,
		})
	}

	impactOrder := map[common.ImpactLevel]int{
		common.ImpactHigh: 0, common.ImpactMedium: 1, common.ImpactLow: 2,
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return impactOrder[factors[i].Impact] < impactOrder[factors[j].Impact]
	})
	return factors
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
