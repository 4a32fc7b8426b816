package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.RedemptionRepository = (*redemptionRepo)(nil)

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) *redemptionRepo {
	return &redemptionRepo{pool: pool}
}

const redemptionColumns = `id, customer_id, restaurant_id, item_id, item_category, item_description, item_points_required, status, code, activated_at, used_at, created_at`

// Save upserts by id. The snapshot columns are written once at creation and
// the upsert deliberately leaves them out of the update list, so a later
// Save can never rewrite history. The update is also conditional on the row
// not being terminal: completed and expired are final states, and a writer
// holding a stale read gets ErrFinalized instead of resurrecting the row.
// The partial unique index on (code) WHERE status = 'activated' turns a code
// race into ErrCodeCollision.
func (r *redemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	const q = `
INSERT INTO redemptions (
  id, customer_id, restaurant_id, item_id, item_category, item_description,
  item_points_required, status, code, activated_at, used_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status=$8, code=$9, activated_at=$10, used_at=$11
  WHERE redemptions.status NOT IN ('completed','expired');`
	tag, err := execSQL(ctx, r.pool, tx, q,
		red.ID, red.CustomerID, red.RestaurantID,
		red.Reward.ItemID, red.Reward.Category, red.Reward.Description, red.Reward.PointsRequired,
		red.Status, red.Code, red.ActivatedAt, red.UsedAt, red.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "redemptions_live_code_key" {
			return domain.ErrCodeCollision
		}
		return translate("redemption_save", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFinalized
	}
	return nil
}

func (r *redemptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	const q = `
SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *redemptionRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	const q = `
SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE id = $1
   FOR UPDATE;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *redemptionRepo) FindByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.Redemption, error) {
	const q = `
SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE code = $1
   FOR UPDATE;`
	return r.queryOne(ctx, tx, q, code)
}

func (r *redemptionRepo) CodeOutstanding(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM redemptions WHERE code = $1 AND status = 'activated'
);`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

// ListByCustomer honors the filter-list ordering contract: with a status
// filter, rows group by the position of their status in the filter array,
// newest first within each group. array_position does the grouping in SQL so
// page slicing applies to the already-grouped ordering.
func (r *redemptionRepo) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, statuses []model.RedemptionStatus, limit, offset int) ([]*model.Redemption, error) {
	filter := make([]string, len(statuses))
	for i, s := range statuses {
		filter[i] = string(s)
	}

	var (
		q    string
		args []interface{}
	)
	if len(filter) == 0 {
		q = `
SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE customer_id = $1
 ORDER BY created_at DESC
 LIMIT $2 OFFSET $3;`
		args = []interface{}{customerID, limit, offset}
	} else {
		q = `
SELECT ` + redemptionColumns + `
  FROM redemptions
 WHERE customer_id = $1 AND status = ANY($2::text[])
 ORDER BY array_position($2::text[], status::text), created_at DESC
 LIMIT $3 OFFSET $4;`
		args = []interface{}{customerID, filter, limit, offset}
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, translate("redemption_list", err)
	}
	defer rows.Close()
	var out []*model.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, red)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *redemptionRepo) StaleActivatedIDs(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]string, error) {
	const q = `
SELECT id
  FROM redemptions
 WHERE status = 'activated' AND activated_at <= $1
 ORDER BY activated_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, translate("redemption_stale", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return ids, nil
}

func (r *redemptionRepo) CountByStatus(ctx context.Context, tx repository.Tx, restaurantID string) (map[model.RedemptionStatus]int, error) {
	const q = `
SELECT status, COUNT(*)
  FROM redemptions
 WHERE restaurant_id = $1
 GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q, restaurantID)
	if err != nil {
		return nil, translate("redemption_count", err)
	}
	defer rows.Close()
	out := make(map[model.RedemptionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.RedemptionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *redemptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Redemption, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var red model.Redemption
	if err := row.Scan(
		&red.ID, &red.CustomerID, &red.RestaurantID,
		&red.Reward.ItemID, &red.Reward.Category, &red.Reward.Description, &red.Reward.PointsRequired,
		&red.Status, &red.Code, &red.ActivatedAt, &red.UsedAt, &red.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &red, nil
}

func scanRedemption(rows pgx.Rows) (*model.Redemption, error) {
	var red model.Redemption
	if err := rows.Scan(
		&red.ID, &red.CustomerID, &red.RestaurantID,
		&red.Reward.ItemID, &red.Reward.Category, &red.Reward.Description, &red.Reward.PointsRequired,
		&red.Status, &red.Code, &red.ActivatedAt, &red.UsedAt, &red.CreatedAt,
	); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &red, nil
}
