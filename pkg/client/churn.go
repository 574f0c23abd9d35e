package client

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// DTOs — request / response
// ---------------------------------------------------------------------------

// CustomerFeatures is the churn scoring input for one customer.
type CustomerFeatures struct {
	CustomerID      string     `json:"customerId"`
	LastOrderDate   *time.Time `json:"lastOrderDate,omitempty"`
	Orders12M       int        `json:"orders12m"`
	TotalSpent12M   float64    `json:"totalSpent12m"`
	Recent3MSpent   float64    `json:"recent3mSpent"`
	Previous3MSpent float64    `json:"previous3mSpent"`
	HasReviews      bool       `json:"hasReviews"`
	AvgRatingGiven  float64    `json:"avgRatingGiven"`
	SupportTickets  int        `json:"supportTickets"`
	ComplaintRatio  float64    `json:"complaintRatio"`
}

// RiskFactor explains one contribution to the churn probability.
type RiskFactor struct {
	Factor string  `json:"factor"`
	Impact string  `json:"impact"`
	Score  float64 `json:"score"`
}

// RFMScores exposes the individual risk components.
type RFMScores struct {
	RecencyRisk    float64 `json:"recencyRisk"`
	FrequencyRisk  float64 `json:"frequencyRisk"`
	MonetaryRisk   float64 `json:"monetaryRisk"`
	TrendRisk      float64 `json:"trendRisk"`
	EngagementRisk float64 `json:"engagementRisk"`
}

// ChurnPrediction is the scored churn risk for one customer.
type ChurnPrediction struct {
	CustomerID       string       `json:"customerId"`
	ChurnProbability float64      `json:"churnProbability"`
	RiskLevel        string       `json:"riskLevel"`
	RiskFactors      []RiskFactor `json:"riskFactors"`
	Recommendation   string       `json:"recommendation"`
	RFMScores        RFMScores    `json:"rfmScores"`
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
	TotalAtRisk int               `json:"totalAtRisk"`
	Customers   []ChurnPrediction `json:"customers"`
	Summary     AtRiskSummary     `json:"summary"`
}

// ---------------------------------------------------------------------------
// ChurnClient
// ---------------------------------------------------------------------------

// ChurnClient provides access to the churn scoring endpoints.
type ChurnClient struct {
	client *Client
}

// Predict scores one customer's churn risk.
// POST /api/v1/churn/predict
func (cc *ChurnClient) Predict(ctx context.Context, features *CustomerFeatures) (*ChurnPrediction, error) {
	if features == nil || features.CustomerID == "" {
		return nil, invalidArg("customerId is required")
	}

	var result ChurnPrediction
	if err := cc.client.post(ctx, "/api/v1/churn/predict", features, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AtRisk lists customers above the churn probability threshold.
// POST /api/v1/churn/at-risk
func (cc *ChurnClient) AtRisk(ctx context.Context, req *AtRiskRequest) (*AtRiskResult, error) {
	if req == nil || len(req.Customers) == 0 {
		return nil, invalidArg("customers list is required")
	}

	var result AtRiskResult
	if err := cc.client.post(ctx, "/api/v1/churn/at-risk", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
