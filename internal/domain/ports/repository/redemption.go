package repository

import (
	"context"
	"time"

	"restaurant-loyalty/internal/domain/model"
)

// RedemptionRepository is the port for redemption records.
type RedemptionRepository interface {
	// Save upserts by id. It returns ErrCodeCollision when the redemption's
	// code conflicts with another outstanding code.
	Save(ctx context.Context, tx Tx, r *model.Redemption) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.Redemption, error)

	// FindByIDForUpdate behaves like FindByID but row-locks inside a
	// transaction, so a sweep expiry and a staff completion serialize.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Redemption, error)

	// FindByCodeForUpdate looks up the redemption currently holding the code,
	// row-locked when called inside a transaction. Returns ErrNotFound when
	// no outstanding redemption holds it.
	FindByCodeForUpdate(ctx context.Context, tx Tx, code string) (*model.Redemption, error)

	// CodeOutstanding reports whether any live redemption holds the code.
	CodeOutstanding(ctx context.Context, tx Tx, code string) (bool, error)

	// ListByCustomer pages a customer's redemptions. With a non-empty status
	// filter, results group in filter-list order (all entries of statuses[0]
	// first, then statuses[1], ...), newest first within each group.
	ListByCustomer(ctx context.Context, tx Tx, customerID string, statuses []model.RedemptionStatus, limit, offset int) ([]*model.Redemption, error)

	// StaleActivatedIDs returns ids of activated redemptions whose code was
	// issued at or before cutoff, for the hygiene sweep.
	StaleActivatedIDs(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]string, error)

	// CountByStatus aggregates a restaurant's redemptions per status.
	CountByStatus(ctx context.Context, tx Tx, restaurantID string) (map[model.RedemptionStatus]int, error)
}
