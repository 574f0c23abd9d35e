package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// CustomerRepository
// ---------------------------------------------------------------------------

// CustomerRepository persists per-customer feature snapshots consumed by the
// churn at-risk scans. Snapshots are refreshed by an upstream ETL and replaced
// wholesale per customer.
type CustomerRepository struct {
	db     querier
	logger logging.Logger
}

// NewCustomerRepository constructs a repository backed by the given pool.
func NewCustomerRepository(pool *pgxpool.Pool, log logging.Logger) *CustomerRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CustomerRepository{db: pool, logger: log.Named("customer-repo")}
}

// UpsertSnapshot replaces the feature snapshot for one customer.
func (r *CustomerRepository) UpsertSnapshot(ctx context.Context, features churn.CustomerFeatures) error {
	if features.CustomerID == "" {
		return errors.NewValidationError("customerId", "customer id is required")
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO customer_snapshots (
			customer_id, last_order_date, orders_12m, total_spent_12m,
			recent_3m_spent, previous_3m_spent, has_reviews,
			avg_rating_given, support_tickets, complaint_ratio, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
		ON CONFLICT (customer_id) DO UPDATE SET
			last_order_date   = EXCLUDED.last_order_date,
			orders_12m        = EXCLUDED.orders_12m,
			total_spent_12m   = EXCLUDED.total_spent_12m,
			recent_3m_spent   = EXCLUDED.recent_3m_spent,
			previous_3m_spent = EXCLUDED.previous_3m_spent,
			has_reviews       = EXCLUDED.has_reviews,
			avg_rating_given  = EXCLUDED.avg_rating_given,
			support_tickets   = EXCLUDED.support_tickets,
			complaint_ratio   = EXCLUDED.complaint_ratio,
			updated_at        = NOW()`,
		features.CustomerID, features.LastOrderDate, features.Orders12M, features.TotalSpent12M,
		features.Recent3MSpent, features.Previous3MSpent, features.HasReviews,
		features.AvgRatingGiven, features.SupportTickets, features.ComplaintRatio,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert customer snapshot")
	}
	return nil
}

// GetSnapshot loads the feature snapshot for one customer.
func (r *CustomerRepository) GetSnapshot(ctx context.Context, customerID string) (*churn.CustomerFeatures, error) {
	if customerID == "" {
		return nil, errors.NewValidationError("customerId", "customer id is required")
	}

	row := r.db.QueryRow(ctx, selectSnapshotColumns+` WHERE customer_id = $1`, customerID)
	features, err := scanSnapshot(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NewNotFoundError("customer snapshot", customerID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load customer snapshot")
	}
	return features, nil
}

// ListSnapshots returns up to limit snapshots ordered by customer id. A zero
// or negative limit returns everything.
func (r *CustomerRepository) ListSnapshots(ctx context.Context, limit int) ([]churn.CustomerFeatures, error) {
	query := selectSnapshotColumns + ` ORDER BY customer_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list customer snapshots")
	}
	defer rows.Close()

	var snapshots []churn.CustomerFeatures
	for rows.Next() {
		features, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan customer snapshot")
		}
		snapshots = append(snapshots, *features)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read customer snapshots")
	}
	return snapshots, nil
}

const selectSnapshotColumns = `
	SELECT customer_id, last_order_date, orders_12m, total_spent_12m,
	       recent_3m_spent, previous_3m_spent, has_reviews,
	       avg_rating_given, support_tickets, complaint_ratio
	FROM customer_snapshots`

func scanSnapshot(row pgx.Row) (*churn.CustomerFeatures, error) {
	var features churn.CustomerFeatures
	err := row.Scan(
		&features.CustomerID, &features.LastOrderDate, &features.Orders12M, &features.TotalSpent12M,
		&features.Recent3MSpent, &features.Previous3MSpent, &features.HasReviews,
		&features.AvgRatingGiven, &features.SupportTickets, &features.ComplaintRatio,
	)
	if err != nil {
		return nil, err
	}
	return &features, nil
}
