package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.RewardItemRepository = (*rewardItemRepo)(nil)

type rewardItemRepo struct {
	pool *pgxpool.Pool
}

func NewRewardItemRepo(pool *pgxpool.Pool) *rewardItemRepo {
	return &rewardItemRepo{pool: pool}
}

const rewardItemColumns = `id, restaurant_id, category, description, points_required, stock, is_active, is_deleted, created_at, updated_at`

// Save upserts by id. Stock and the delete flag are deliberately left out of
// the update list: the counter moves only through DecrementStock/SetStock and
// deletion only through SoftDelete, so a Save carrying a stale copy cannot
// restore a concurrently consumed unit or undelete a row.
func (r *rewardItemRepo) Save(ctx context.Context, tx repository.Tx, item *model.RewardItem) error {
	const q = `
INSERT INTO reward_items (
  id, restaurant_id, category, description, points_required, stock, is_active, is_deleted, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  category=$3, description=$4, points_required=$5, is_active=$7, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q,
		item.ID, item.RestaurantID, item.Category, item.Description,
		item.PointsRequired, item.Stock, item.IsActive, item.IsDeleted,
		item.CreatedAt, item.UpdatedAt,
	)
	return translate("reward_item_save", err)
}

func (r *rewardItemRepo) SetStock(ctx context.Context, tx repository.Tx, id string, stock *int) error {
	const q = `
UPDATE reward_items
   SET stock = $2, updated_at = NOW()
 WHERE id = $1 AND is_deleted = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, stock)
	if err != nil {
		return translate("reward_item_set_stock", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *rewardItemRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `
UPDATE reward_items
   SET is_deleted = TRUE, is_active = FALSE, updated_at = NOW()
 WHERE id = $1 AND is_deleted = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return translate("reward_item_soft_delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *rewardItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	const q = `
SELECT ` + rewardItemColumns + `
  FROM reward_items
 WHERE id = $1 AND is_deleted = FALSE;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *rewardItemRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	const q = `
SELECT ` + rewardItemColumns + `
  FROM reward_items
 WHERE id = $1 AND is_deleted = FALSE
   FOR UPDATE;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *rewardItemRepo) List(ctx context.Context, tx repository.Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error) {
	const q = `
SELECT ` + rewardItemColumns + `
  FROM reward_items
 WHERE is_active = TRUE AND is_deleted = FALSE
   AND ($1 = '' OR restaurant_id = $1)
 ORDER BY created_at DESC
 LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, restaurantID, limit, offset)
	if err != nil {
		return nil, translate("reward_item_list", err)
	}
	defer rows.Close()
	var out []*model.RewardItem
	for rows.Next() {
		item, err := scanRewardItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// DecrementStock applies the redemption-time decrement. NULL stock means
// unlimited and always applies; the predicate refuses to take the last unit
// twice even without the caller's row lock.
func (r *rewardItemRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE reward_items
   SET stock = stock - 1, updated_at = NOW()
 WHERE id = $1 AND is_deleted = FALSE AND stock IS NOT NULL AND stock > 0;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, translate("reward_item_decrement", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Unlimited items have no counter to move.
	const probe = `
SELECT stock IS NULL
  FROM reward_items
 WHERE id = $1 AND is_deleted = FALSE;`
	row, err := pickRow(ctx, r.pool, tx, probe, id)
	if err != nil {
		return false, err
	}
	var unlimited bool
	if err := row.Scan(&unlimited); err != nil {
		if err == pgx.ErrNoRows {
			return false, domain.ErrNotFound
		}
		return false, domain.ErrReadDatabaseRow
	}
	return unlimited, nil
}

func (r *rewardItemRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.RewardItem, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var item model.RewardItem
	if err := row.Scan(
		&item.ID, &item.RestaurantID, &item.Category, &item.Description,
		&item.PointsRequired, &item.Stock, &item.IsActive, &item.IsDeleted,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &item, nil
}

func scanRewardItem(rows pgx.Rows) (*model.RewardItem, error) {
	var item model.RewardItem
	if err := rows.Scan(
		&item.ID, &item.RestaurantID, &item.Category, &item.Description,
		&item.PointsRequired, &item.Stock, &item.IsActive, &item.IsDeleted,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &item, nil
}
