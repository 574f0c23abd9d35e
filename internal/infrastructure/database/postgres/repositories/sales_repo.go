package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/forecast"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// SalesRepository
// ---------------------------------------------------------------------------

// SalesRepository stores daily sales quantities per product and serves them
// back as training series. It satisfies the forecasting history source port.
type SalesRepository struct {
	db     querier
	logger logging.Logger
	now    func() time.Time
}

// NewSalesRepository constructs a repository backed by the given pool.
func NewSalesRepository(pool *pgxpool.Pool, log logging.Logger) *SalesRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SalesRepository{db: pool, logger: log.Named("sales-repo"), now: time.Now}
}

// RecordSales upserts daily quantities for a product. Quantities for an
// existing (product, date) pair are accumulated, matching how order line items
// arrive throughout the day.
func (r *SalesRepository) RecordSales(ctx context.Context, productID string, points []forecast.DataPoint) error {
	if productID == "" {
		return errors.NewValidationError("productId", "product id is required")
	}
	if len(points) == 0 {
		return nil
	}

	for _, p := range points {
		_, err := r.db.Exec(ctx, `
			INSERT INTO sales_history (product_id, sale_date, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, sale_date)
			DO UPDATE SET quantity = sales_history.quantity + EXCLUDED.quantity`,
			productID, p.Date.Truncate(24*time.Hour), p.Value,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record sales")
		}
	}

	r.logger.Debug("Sales recorded",
		logging.String("productId", productID),
		logging.Int("points", len(points)))
	return nil
}

// FetchDailySales returns the per-day quantities of the last N days for a
// product, date ascending. Days without sales are absent from the series.
func (r *SalesRepository) FetchDailySales(ctx context.Context, productID string, days int) (forecast.Series, error) {
	if productID == "" {
		return nil, errors.NewValidationError("productId", "product id is required")
	}
	if days <= 0 {
		return nil, errors.NewValidationError("days", "must be greater than zero")
	}

	since := r.now().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx, `
		SELECT sale_date, SUM(quantity)::float8
		FROM sales_history
		WHERE product_id = $1 AND sale_date >= $2
		GROUP BY sale_date
		ORDER BY sale_date`,
		productID, since,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query sales history")
	}
	defer rows.Close()

	var series forecast.Series
	for rows.Next() {
		var point forecast.DataPoint
		if err := rows.Scan(&point.Date, &point.Value); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan sales row")
		}
		series = append(series, point)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read sales history")
	}
	return series, nil
}

// ListProductIDs returns products with at least minPoints recorded days,
// sorted by id. The retraining worker uses it to enumerate candidates.
func (r *SalesRepository) ListProductIDs(ctx context.Context, minPoints int) ([]string, error) {
	if minPoints < 1 {
		minPoints = 1
	}

	rows, err := r.db.Query(ctx, `
		SELECT product_id
		FROM sales_history
		GROUP BY product_id
		HAVING COUNT(*) >= $1
		ORDER BY product_id`,
		minPoints,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list products")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan product id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read product ids")
	}
	return ids, nil
}

// PurgeOlderThan deletes sales rows older than the retention window and
// returns the number of deleted rows.
func (r *SalesRepository) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.NewValidationError("retentionDays", "must be greater than zero")
	}

	cutoff := r.now().AddDate(0, 0, -retentionDays)
	tag, err := r.db.Exec(ctx, `DELETE FROM sales_history WHERE sale_date < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to purge sales history")
	}

	deleted := tag.RowsAffected()
	if deleted > 0 {
		r.logger.Info("Purged stale sales history",
			logging.Int64("rows", deleted),
			logging.Int("retentionDays", retentionDays))
	}
	return deleted, nil
}
