package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// BalanceUseCase exposes the ledger's earn/read operations. The spend path
// lives in RedemptionUseCase, which debits through the same repository
// primitive inside its own transaction.
type BalanceUseCase struct {
	balances repository.BalanceRepository
	log      *zerolog.Logger
}

func NewBalanceUseCase(balances repository.BalanceRepository, logger *zerolog.Logger) *BalanceUseCase {
	l := logger.With().Str("component", "BalanceUC").Logger()
	return &BalanceUseCase{balances: balances, log: &l}
}

// Earn credits points to the (restaurant, customer) balance, creating the
// row on first earn. The repository call is a single atomic statement, so no
// wider transaction is needed here.
func (uc *BalanceUseCase) Earn(ctx context.Context, restaurantID, customerID string, points int) (*model.Balance, error) {
	if restaurantID == "" || customerID == "" || points <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	ok, err := uc.balances.Adjust(ctx, repository.NoTX, restaurantID, customerID, points)
	if err != nil {
		return nil, err
	}
	if !ok {
		// unreachable for positive deltas; kept for the contract
		return nil, domain.ErrInsufficientBalance
	}
	uc.log.Debug().Str("restaurant_id", restaurantID).Str("customer_id", customerID).Int("points", points).Msg("points earned")
	return uc.balances.Find(ctx, repository.NoTX, restaurantID, customerID)
}

// Get returns the balance, or a zero-point view when no row exists yet.
func (uc *BalanceUseCase) Get(ctx context.Context, restaurantID, customerID string) (*model.Balance, error) {
	if restaurantID == "" || customerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	b, err := uc.balances.Find(ctx, repository.NoTX, restaurantID, customerID)
	if err == domain.ErrNotFound {
		return &model.Balance{RestaurantID: restaurantID, CustomerID: customerID, Points: 0}, nil
	}
	return b, err
}

// Liability sums a restaurant's outstanding points.
func (uc *BalanceUseCase) Liability(ctx context.Context, restaurantID string) (int, error) {
	if restaurantID == "" {
		return 0, domain.ErrInvalidArgument
	}
	return uc.balances.TotalPoints(ctx, repository.NoTX, restaurantID)
}
