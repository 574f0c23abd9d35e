package client

import (
	"context"
)

// ---------------------------------------------------------------------------
// DTOs — request / response
// ---------------------------------------------------------------------------

// PricingProduct is the pricing input for one product.
type PricingProduct struct {
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

// PricingConstraints bounds the recommendation.
type PricingConstraints struct {
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

// Projections estimates the demand and revenue effect of the change.
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

// PriceRecommendation is the pricing result for one product.
type PriceRecommendation struct {
	ProductID          string            `json:"productId"`
	ProductName        string            `json:"productName"`
	CurrentPrice       float64           `json:"currentPrice"`
	RecommendedPrice   float64           `json:"recommendedPrice"`
	PriceChangePercent float64           `json:"priceChangePercent"`
	Factors            Factors           `json:"factors"`
	Projections        Projections       `json:"projections"`
	Constraints        ConstraintsReport `json:"constraints"`
}

// PricingBatchSummary counts recommendation directions.
type PricingBatchSummary struct {
	Total     int `json:"total"`
	Increases int `json:"increases"`
	Decreases int `json:"decreases"`
	Unchanged int `json:"unchanged"`
}

// PricingBatchResult is the batch recommendation response.
type PricingBatchResult struct {
	Recommendations []PriceRecommendation `json:"recommendations"`
	Summary         PricingBatchSummary   `json:"summary"`
}

// recommendRequest is the wire shape of a single recommendation call: the
// product fields inline plus an optional constraints block.
type recommendRequest struct {
	PricingProduct
	Constraints *PricingConstraints `json:"constraints,omitempty"`
}

type batchRecommendRequest struct {
	Products    []PricingProduct    `json:"products"`
	Constraints *PricingConstraints `json:"constraints,omitempty"`
}

// ---------------------------------------------------------------------------
// PricingClient
// ---------------------------------------------------------------------------

// PricingClient provides access to the price recommendation endpoints.
type PricingClient struct {
	client *Client
}

// Recommend computes a price recommendation for one product.
// POST /api/v1/pricing/recommend
func (pc *PricingClient) Recommend(ctx context.Context, product *PricingProduct, constraints *PricingConstraints) (*PriceRecommendation, error) {
	if product == nil || product.ProductID == "" {
		return nil, invalidArg("productId is required")
	}

	body := recommendRequest{PricingProduct: *product, Constraints: constraints}
	var result PriceRecommendation
	if err := pc.client.post(ctx, "/api/v1/pricing/recommend", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecommendBatch computes recommendations for several products in one call.
// POST /api/v1/pricing/batch
func (pc *PricingClient) RecommendBatch(ctx context.Context, products []PricingProduct, constraints *PricingConstraints) (*PricingBatchResult, error) {
	if len(products) == 0 {
		return nil, invalidArg("products list is required")
	}

	body := batchRecommendRequest{Products: products, Constraints: constraints}
	var result PricingBatchResult
	if err := pc.client.post(ctx, "/api/v1/pricing/batch", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Elasticity returns the per-category price elasticity table.
// GET /api/v1/pricing/elasticity
func (pc *PricingClient) Elasticity(ctx context.Context) (map[string]float64, error) {
	var result map[string]float64
	if err := pc.client.get(ctx, "/api/v1/pricing/elasticity", &result); err != nil {
		return nil, err
	}
	return result, nil
}
