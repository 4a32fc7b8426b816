package repository

import (
	"context"

	"restaurant-loyalty/internal/domain/model"
)

// RewardItemRepository is the port for catalog persistence.
type RewardItemRepository interface {
	// Save inserts a new item or updates the patchable fields of an existing
	// one. The stock counter and the delete flag are not in the update set:
	// stock moves only through DecrementStock and SetStock, deletion only
	// through SoftDelete, so an unlocked read-modify-write can never undo a
	// concurrent decrement or deletion.
	Save(ctx context.Context, tx Tx, item *model.RewardItem) error

	// SetStock overwrites the stock counter alone; nil means unlimited.
	SetStock(ctx context.Context, tx Tx, id string, stock *int) error

	// SoftDelete retires the item from reads and listings while keeping the
	// row addressable. Returns ErrNotFound for missing or already-deleted
	// items.
	SoftDelete(ctx context.Context, tx Tx, id string) error

	// FindByID returns ErrNotFound for missing or soft-deleted items.
	FindByID(ctx context.Context, tx Tx, id string) (*model.RewardItem, error)

	// FindByIDForUpdate behaves like FindByID but takes a row lock when called
	// inside a transaction, serializing concurrent redemptions of one item.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.RewardItem, error)

	// List returns active, non-deleted items; restaurantID may be empty for
	// a platform-wide listing.
	List(ctx context.Context, tx Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error)

	// DecrementStock subtracts one unit and reports whether it applied.
	// Unlimited items (NULL stock) always apply; exhausted stock does not.
	DecrementStock(ctx context.Context, tx Tx, id string) (bool, error)
}
