package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// Mid-June: construction season, no month-start or quarter-end modifiers.
var fixedNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService(now time.Time) Service {
	return NewService(Deps{Now: func() time.Time { return now }})
}

func fp(v float64) *float64 { return &v }

func cementProduct() Product {
	return Product{
		ProductID:          "prod_001",
		ProductName:        "Xi măng Holcim PCB40",
		BasePrice:          95000,
		Cost:               78000,
		Category:           "xi_mang",
		CurrentStock:       fp(500),
		AvgDailySales:      fp(15),
		DemandIndex:        fp(1.2),
		CompetitorAvgPrice: fp(93000),
	}
}

func TestRecommend_Validation(t *testing.T) {
	svc := newTestService(fixedNow)
	ctx := context.Background()

	_, err := svc.Recommend(ctx, Product{BasePrice: 1000}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = svc.Recommend(ctx, Product{ProductID: "p1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRecommend_CementScenario(t *testing.T) {
	svc := newTestService(fixedNow)

	rec, err := svc.Recommend(context.Background(), cementProduct(), nil)
	require.NoError(t, err)

	// demand 1.2 sits on the normal rung, stock 33 days is healthy, the
	// competitor factor pulls slightly down, season pushes up 5%.
	assert.InDelta(t, 1.00, rec.Factors.Demand.Value, 1e-9)
	assert.InDelta(t, 1.00, rec.Factors.Inventory.Value, 1e-9)
	assert.InDelta(t, 0.9789, rec.Factors.Competitor.Value, 1e-3)
	assert.InDelta(t, 1.05, rec.Factors.Time.Value, 1e-9)

	assert.Equal(t, 98000.0, rec.RecommendedPrice)
	assert.InDelta(t, 3.2, rec.PriceChangePercent, 1e-9)
	assert.InDelta(t, 0.9, rec.Projections.Confidence, 1e-9)
	assert.True(t, rec.Constraints.WithinPriceBounds)
}

func TestRecommend_PriceStaysWithinBounds(t *testing.T) {
	svc := newTestService(fixedNow)

	extremes := []Product{
		{ProductID: "hot", BasePrice: 95000, DemandIndex: fp(3.0), CurrentStock: fp(10), AvgDailySales: fp(20), CompetitorAvgPrice: fp(120000)},
		{ProductID: "cold", BasePrice: 95000, DemandIndex: fp(0.1), CurrentStock: fp(100000), AvgDailySales: fp(1), CompetitorAvgPrice: fp(60000)},
	}
	// Clamp bounds are 71250..118750; the final rounding to the nearest
	// thousand can land one step outside.
	for _, p := range extremes {
		rec, err := svc.Recommend(context.Background(), p, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.RecommendedPrice, 71000.0, p.ProductID)
		assert.LessOrEqual(t, rec.RecommendedPrice, 119000.0, p.ProductID)
	}
}

func TestRecommend_RoundsToThousand(t *testing.T) {
	svc := newTestService(fixedNow)
	rec, err := svc.Recommend(context.Background(), cementProduct(), nil)
	require.NoError(t, err)
	assert.Zero(t, int64(rec.RecommendedPrice)%1000)
}

func TestRecommend_MarginFloorBeatsChangeBound(t *testing.T) {
	svc := newTestService(fixedNow)

	// Cost so high the margin floor exceeds what the factors want.
	rec, err := svc.Recommend(context.Background(), Product{
		ProductID:     "expensive",
		BasePrice:     100000,
		Cost:          90000,
		DemandIndex:   fp(0.3),
		CurrentStock:  fp(10000),
		AvgDailySales: fp(1),
	}, nil)
	require.NoError(t, err)

	// min price = 90000 * 1.15 = 103500, rounded to 104000.
	assert.Equal(t, 104000.0, rec.RecommendedPrice)
	assert.GreaterOrEqual(t, rec.Constraints.MarginAchieved, 0.1)
}

func TestRecommend_DefaultCostFromBasePrice(t *testing.T) {
	svc := newTestService(fixedNow)

	rec, err := svc.Recommend(context.Background(), Product{
		ProductID: "nocost",
		BasePrice: 100000,
	}, nil)
	require.NoError(t, err)

	// cost defaults to 70000; margin stays comfortably above the floor.
	assert.Greater(t, rec.Constraints.MarginAchieved, 0.15)
	// No optional inputs were given.
	assert.InDelta(t, 0.5, rec.Projections.Confidence, 1e-9)
}

func TestRecommend_NoCompetitorData(t *testing.T) {
	svc := newTestService(fixedNow)

	rec, err := svc.Recommend(context.Background(), Product{
		ProductID: "p1", BasePrice: 50000,
	}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rec.Factors.Competitor.Value, 1e-9)
	assert.Equal(t, "No competitor data", rec.Factors.Competitor.Reason)
}

func TestRecommend_PremiumStrategy(t *testing.T) {
	svc := newTestService(fixedNow)
	noMatch := false

	rec, err := svc.Recommend(context.Background(), Product{
		ProductID: "p1", BasePrice: 100000, CompetitorAvgPrice: fp(100000),
	}, &Constraints{CompetitorMatch: &noMatch})
	require.NoError(t, err)
	// Target ratio 1.10 over parity pushes the factor to 1.10.
	assert.InDelta(t, 1.10, rec.Factors.Competitor.Value, 1e-9)
}

func TestTimeFactor_Modifiers(t *testing.T) {
	// Off-season December 28th: 0.98 * 1.03.
	f := timeFactor(time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 1.009, f.Value, 1e-9)
	assert.Contains(t, f.Reason, "Quarter end")

	// Season + month start: 1.05 * 0.98.
	f = timeFactor(time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 1.029, f.Value, 1e-9)
	assert.Contains(t, f.Reason, "wholesale")
}

func TestRecommend_ElasticityProjections(t *testing.T) {
	svc := newTestService(fixedNow)

	rec, err := svc.Recommend(context.Background(), cementProduct(), nil)
	require.NoError(t, err)

	// xi_mang elasticity .8; price +3.2% => demand change -2.526%.
	assert.InDelta(t, 15*(1-0.8*0.031578947), rec.Projections.ExpectedDemand, 0.06)
	assert.Greater(t, rec.Projections.ExpectedRevenue, 0.0)
	assert.Greater(t, rec.Projections.ExpectedProfit, 0.0)
}

func TestRecommendBatch_Summary(t *testing.T) {
	svc := newTestService(fixedNow)

	res, err := svc.RecommendBatch(context.Background(), []Product{
		cementProduct(),
		{ProductID: "drop", BasePrice: 95000, DemandIndex: fp(0.1), CurrentStock: fp(100000), AvgDailySales: fp(1), CompetitorAvgPrice: fp(60000)},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, res.Summary.Total,
		res.Summary.Increases+res.Summary.Decreases+res.Summary.Unchanged)
	require.Len(t, res.Recommendations, 2)
}

func TestRecommendBatch_Empty(t *testing.T) {
	svc := newTestService(fixedNow)
	_, err := svc.RecommendBatch(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestElasticityTable_CopyIsIndependent(t *testing.T) {
	svc := newTestService(fixedNow)

	table := svc.ElasticityTable()
	assert.InDelta(t, 0.8, table["xi_mang"], 1e-9)
	assert.InDelta(t, 1.0, table["default"], 1e-9)

	table["xi_mang"] = 99
	assert.InDelta(t, 0.8, svc.ElasticityTable()["xi_mang"], 1e-9)
}
