package churn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService() Service {
	return NewService(Deps{Now: func() time.Time { return fixedNow }})
}

func daysAgo(days int) *time.Time {
	t := fixedNow.AddDate(0, 0, -days)
	return &t
}

func TestPredict_RequiresCustomerID(t *testing.T) {
	svc := newTestService()
	_, err := svc.Predict(context.Background(), CustomerFeatures{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPredict_HealthyCustomerIsLowRisk(t *testing.T) {
	svc := newTestService()

	p, err := svc.Predict(context.Background(), CustomerFeatures{
		CustomerID:      "C001",
		LastOrderDate:   daysAgo(10),
		Orders12M:       14,
		TotalSpent12M:   25_000_000,
		Recent3MSpent:   8_000_000,
		Previous3MSpent: 6_000_000,
		HasReviews:      true,
		AvgRatingGiven:  4.5,
	})
	require.NoError(t, err)

	// recency 0, frequency 0, monetary 0 (ratio 2.5), trend 0 (+33%),
	// engagement 0.2 -> probability 0.02.
	assert.InDelta(t, 0.02, p.ChurnProbability, 1e-9)
	assert.Equal(t, common.RiskLow, p.RiskLevel)
	assert.Empty(t, p.RiskFactors)
	assert.Equal(t, "Gửi newsletter thông thường", p.Recommendation)
}

func TestPredict_DormantCustomerIsCritical(t *testing.T) {
	svc := newTestService()

	p, err := svc.Predict(context.Background(), CustomerFeatures{
		CustomerID:      "C002",
		LastOrderDate:   daysAgo(200),
		Orders12M:       0,
		TotalSpent12M:   1_000_000,
		Recent3MSpent:   0,
		Previous3MSpent: 5_000_000,
		ComplaintRatio:  0.4,
	})
	require.NoError(t, err)

	// recency 1, frequency 1, monetary .8, trend 1 (−100%), engagement .8
	// -> .30+.25+.12+.20+.08 = 0.95.
	assert.InDelta(t, 0.95, p.ChurnProbability, 1e-9)
	assert.Equal(t, common.RiskCritical, p.RiskLevel)
	assert.NotEmpty(t, p.RiskFactors)
	assert.Equal(t, "Gọi điện trực tiếp + Giảm giá 20% cho đơn tiếp theo", p.Recommendation)
}

func TestPredict_MissingLastOrderDefaultsTo180Days(t *testing.T) {
	svc := newTestService()

	p, err := svc.Predict(context.Background(), CustomerFeatures{
		CustomerID:    "C003",
		Orders12M:     12,
		TotalSpent12M: 30_000_000,
		Recent3MSpent: 10_000_000, Previous3MSpent: 9_000_000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.RFMScores.RecencyRisk, 1e-9)
}

func TestPredict_NoPreviousSpendReadsAsDecline(t *testing.T) {
	svc := newTestService()

	p, err := svc.Predict(context.Background(), CustomerFeatures{
		CustomerID:    "C004",
		LastOrderDate: daysAgo(10),
		Orders12M:     12,
		TotalSpent12M: 30_000_000,
		Recent3MSpent: 5_000_000,
	})
	require.NoError(t, err)
	// trend reads -0.5 -> risk 1.0.
	assert.InDelta(t, 1.0, p.RFMScores.TrendRisk, 1e-9)
}

func TestPredict_RiskFactorsSortedByImpact(t *testing.T) {
	svc := newTestService()

	p, err := svc.Predict(context.Background(), CustomerFeatures{
		CustomerID:      "C005",
		LastOrderDate:   daysAgo(80), // recency .5, not a factor
		Orders12M:       1,           // frequency .7 -> MEDIUM factor
		TotalSpent12M:   2_000_000,
		Recent3MSpent:   1_000_000,
		Previous3MSpent: 4_000_000, // trend -.75 -> risk 1.0 -> HIGH factor
		ComplaintRatio:  0.35,      // engagement .8 -> LOW factor
	})
	require.NoError(t, err)

	require.Len(t, p.RiskFactors, 3)
	assert.Equal(t, common.ImpactHigh, p.RiskFactors[0].Impact)
	assert.Equal(t, common.ImpactMedium, p.RiskFactors[1].Impact)
	assert.Equal(t, common.ImpactLow, p.RiskFactors[2].Impact)
	assert.Contains(t, p.RiskFactors[0].Factor, "75%")
}

func TestPredict_ProbabilityBounds(t *testing.T) {
	svc := newTestService()
	worst := CustomerFeatures{
		CustomerID:     "C006",
		ComplaintRatio: 1.0,
	}
	p, err := svc.Predict(context.Background(), worst)
	require.NoError(t, err)
	assert.LessOrEqual(t, p.ChurnProbability, 1.0)
	assert.GreaterOrEqual(t, p.ChurnProbability, 0.0)
}

func TestPredictBatch_EmptyInput(t *testing.T) {
	svc := newTestService()
	_, err := svc.PredictBatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPredictBatch_PreservesOrder(t *testing.T) {
	svc := newTestService()
	out, err := svc.PredictBatch(context.Background(), []CustomerFeatures{
		{CustomerID: "A", LastOrderDate: daysAgo(10), Orders12M: 12, TotalSpent12M: 30_000_000, Recent3MSpent: 5, Previous3MSpent: 4},
		{CustomerID: "B"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].CustomerID)
	assert.Equal(t, "B", out[1].CustomerID)
}

func TestAtRisk_FiltersSortsAndLimits(t *testing.T) {
	svc := newTestService()

	customers := []CustomerFeatures{
		{CustomerID: "healthy", LastOrderDate: daysAgo(10), Orders12M: 14, TotalSpent12M: 25_000_000, Recent3MSpent: 8_000_000, Previous3MSpent: 6_000_000, HasReviews: true, AvgRatingGiven: 4.5},
		{CustomerID: "dormant", LastOrderDate: daysAgo(200), Previous3MSpent: 5_000_000, ComplaintRatio: 0.4},
		{CustomerID: "fading", LastOrderDate: daysAgo(100), Orders12M: 2, TotalSpent12M: 4_000_000, Recent3MSpent: 500_000, Previous3MSpent: 2_000_000},
	}

	res, err := svc.AtRisk(context.Background(), AtRiskRequest{Customers: customers})
	require.NoError(t, err)

	require.GreaterOrEqual(t, res.TotalAtRisk, 2)
	for _, p := range res.Customers {
		assert.GreaterOrEqual(t, p.ChurnProbability, 0.6)
		assert.NotEqual(t, "healthy", p.CustomerID)
	}
	for i := 1; i < len(res.Customers); i++ {
		assert.GreaterOrEqual(t, res.Customers[i-1].ChurnProbability, res.Customers[i].ChurnProbability)
	}
	assert.Equal(t, res.TotalAtRisk, res.Summary.Critical+res.Summary.High+res.Summary.Medium)
}

func TestAtRisk_LimitApplied(t *testing.T) {
	svc := newTestService()

	customers := make([]CustomerFeatures, 5)
	for i := range customers {
		customers[i] = CustomerFeatures{CustomerID: string(rune('a' + i))}
	}

	res, err := svc.AtRisk(context.Background(), AtRiskRequest{Customers: customers, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Customers, 2)
	assert.Equal(t, 2, res.TotalAtRisk)
}
