package repository

import (
	"context"

	"restaurant-loyalty/internal/domain/model"
)

// BalanceRepository is the port for the point ledger.
type BalanceRepository interface {
	// Adjust atomically applies delta to the (restaurant, customer) balance.
	// A missing row is created when delta is positive. It returns false, with
	// no mutation, when the adjustment would drive the balance negative or
	// debit a nonexistent row. The storage layer serializes concurrent calls
	// per key so the non-negative invariant holds under load.
	Adjust(ctx context.Context, tx Tx, restaurantID, customerID string, delta int) (bool, error)

	Find(ctx context.Context, tx Tx, restaurantID, customerID string) (*model.Balance, error)

	// TotalPoints sums outstanding points for one restaurant (liability stat).
	TotalPoints(ctx context.Context, tx Tx, restaurantID string) (int, error)
}
