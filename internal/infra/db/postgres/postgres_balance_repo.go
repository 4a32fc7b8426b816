package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.BalanceRepository = (*balanceRepo)(nil)

type balanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *balanceRepo {
	return &balanceRepo{pool: pool}
}

// Adjust applies delta in a single guarded statement. The upsert creates the
// row only for positive deltas; the update's WHERE clause refuses anything
// that would go negative, and the raced-upon row lock serializes concurrent
// adjustments per (restaurant, customer) key. RowsAffected tells us whether
// the adjustment applied; the points >= 0 CHECK on the table is the second
// line of defense.
func (r *balanceRepo) Adjust(ctx context.Context, tx repository.Tx, restaurantID, customerID string, delta int) (bool, error) {
	if delta >= 0 {
		const q = `
INSERT INTO balances (id, restaurant_id, customer_id, points, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (restaurant_id, customer_id) DO UPDATE
  SET points = balances.points + EXCLUDED.points, updated_at = NOW();`
		_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), restaurantID, customerID, delta)
		if err != nil {
			return false, translate("balance_credit", err)
		}
		return true, nil
	}

	const q = `
UPDATE balances
   SET points = points + $3, updated_at = NOW()
 WHERE restaurant_id = $1 AND customer_id = $2 AND points + $3 >= 0;`
	tag, err := execSQL(ctx, r.pool, tx, q, restaurantID, customerID, delta)
	if err != nil {
		return false, translate("balance_debit", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *balanceRepo) Find(ctx context.Context, tx repository.Tx, restaurantID, customerID string) (*model.Balance, error) {
	const q = `
SELECT id, restaurant_id, customer_id, points, created_at, updated_at
  FROM balances
 WHERE restaurant_id = $1 AND customer_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, restaurantID, customerID)
	if err != nil {
		return nil, err
	}
	var b model.Balance
	if err := row.Scan(&b.ID, &b.RestaurantID, &b.CustomerID, &b.Points, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &b, nil
}

func (r *balanceRepo) TotalPoints(ctx context.Context, tx repository.Tx, restaurantID string) (int, error) {
	const q = `
SELECT COALESCE(SUM(points), 0)
  FROM balances
 WHERE restaurant_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, restaurantID)
	if err != nil {
		return 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return total, nil
}
