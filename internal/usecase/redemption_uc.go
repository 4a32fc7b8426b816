package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/config"
	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// RedemptionUseCase orchestrates the redemption state machine:
// pending -> activated -> completed | expired. Create composes the stock
// decrement, ledger debit and record insert into one transaction; Activate
// issues the short-lived code; Complete is the staff-side endpoint of the
// exchange. Spend is final: no transition returns points or stock.
type RedemptionUseCase struct {
	redemptions repository.RedemptionRepository
	items       repository.RewardItemRepository
	balances    repository.BalanceRepository
	tm          repository.TransactionManager

	codeTTL      time.Duration
	reactivation config.ReactivationPolicy
	pageSize     int
	maxPageSize  int
	rng          io.Reader
	log          *zerolog.Logger
}

// NewRedemptionUseCase constructs the workflow. rng may be nil, in which case
// crypto/rand is used; tests pass a deterministic reader.
func NewRedemptionUseCase(
	redemptions repository.RedemptionRepository,
	items repository.RewardItemRepository,
	balances repository.BalanceRepository,
	tm repository.TransactionManager,
	cfg config.LoyaltyConfig,
	rng io.Reader,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	if rng == nil {
		rng = rand.Reader
	}
	l := logger.With().Str("component", "RedemptionUC").Logger()
	return &RedemptionUseCase{
		redemptions:  redemptions,
		items:        items,
		balances:     balances,
		tm:           tm,
		codeTTL:      cfg.CodeTTL,
		reactivation: cfg.Reactivation,
		pageSize:     cfg.PageSize,
		maxPageSize:  cfg.MaxPageSize,
		rng:          rng,
		log:          &l,
	}
}

// Create reserves a reward for a customer. Inside one transaction it locks
// the catalog row, decrements finite stock, debits the ledger and inserts
// the pending redemption with its immutable snapshot. Any failure rolls the
// whole thing back; the caller observes either all three effects or none.
func (uc *RedemptionUseCase) Create(ctx context.Context, customerID, itemID string) (*model.Redemption, error) {
	if customerID == "" || itemID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var red *model.Redemption
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		item, err := uc.items.FindByIDForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return domain.ErrNotFound
		}
		if item.Stock != nil && *item.Stock <= 0 {
			return domain.ErrOutOfStock
		}
		ok, err := uc.items.DecrementStock(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOutOfStock
		}

		ok, err = uc.balances.Adjust(ctx, tx, item.RestaurantID, customerID, -item.PointsRequired)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientBalance
		}

		red = &model.Redemption{
			ID:           ulid.Make().String(),
			CustomerID:   customerID,
			RestaurantID: item.RestaurantID,
			Reward:       model.SnapshotOf(item),
			Status:       model.RedemptionStatusPending,
			CreatedAt:    time.Now(),
		}
		return uc.redemptions.Save(ctx, tx, red)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("redemption_id", red.ID).
		Str("customer_id", customerID).
		Str("item_id", itemID).
		Int("points", red.Reward.PointsRequired).
		Msg("redemption created")
	return red, nil
}

// Get loads a redemption by id. Ownership checks belong to the boundary.
func (uc *RedemptionUseCase) Get(ctx context.Context, id string) (*model.Redemption, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.redemptions.FindByID(ctx, repository.NoTX, id)
}

// Activate assigns a fresh unique code and timestamp, moving the redemption
// to activated. Re-activating an already-activated redemption follows the
// configured policy: reissue (new code, old one retired) or reject. Terminal
// redemptions cannot be activated. No balance or stock effect.
func (uc *RedemptionUseCase) Activate(ctx context.Context, id string) (*model.Redemption, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}

	// The row lock plus the status re-check under it serialize Activate
	// against Complete and the sweep: a transition that committed in between
	// is observed, never overwritten. Code uniqueness is generate-then-check
	// with the storage unique index as the backstop: a losing racer gets
	// ErrCodeCollision from Save, the transaction aborts, and the outer loop
	// starts a fresh one and draws again. No retry cap; at six digits
	// against a handful of outstanding codes the loop all but never repeats.
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var red *model.Redemption
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			var err error
			red, err = uc.redemptions.FindByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if red.Status.Terminal() {
				return domain.ErrFinalized
			}
			if red.Status == model.RedemptionStatusActivated && uc.reactivation == config.ReactivationReject {
				return domain.ErrAlreadyActivated
			}
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				code, err := generateRedemptionCode(uc.rng)
				if err != nil {
					return err
				}
				taken, err := uc.redemptions.CodeOutstanding(ctx, tx, code)
				if err != nil {
					return err
				}
				if taken {
					continue
				}
				now := time.Now()
				red.Status = model.RedemptionStatusActivated
				red.ActivatedAt = &now
				red.Code = &code
				return uc.redemptions.Save(ctx, tx, red)
			}
		})
		if errors.Is(err, domain.ErrCodeCollision) {
			continue
		}
		if err != nil {
			return nil, err
		}
		uc.log.Info().Str("redemption_id", red.ID).Msg("redemption activated")
		return red, nil
	}
}

// Complete is the on-site exchange: staff present a customer's code within
// their own restaurant scope. An overdue code is burned on the spot - the
// redemption flips to expired, the code is cleared, and the caller still
// gets ErrExpired. A successful completion records usedAt and clears the
// code. Points and stock are never returned on either path.
func (uc *RedemptionUseCase) Complete(ctx context.Context, staffRestaurantID, code string) (*model.Redemption, error) {
	if staffRestaurantID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}

	var (
		red     *model.Redemption
		expired bool
	)
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		red, err = uc.redemptions.FindByCodeForUpdate(ctx, tx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		if err != nil {
			return err
		}
		if red.RestaurantID != staffRestaurantID {
			return domain.ErrForbidden
		}
		if red.Status != model.RedemptionStatusActivated {
			return domain.ErrNotActivated
		}

		now := time.Now()
		if red.CodeExpired(now, uc.codeTTL) {
			// Burn the code even though the call fails: the expiry must
			// commit, so the error is surfaced after the transaction.
			expired = true
			red.Status = model.RedemptionStatusExpired
			red.Code = nil
			return uc.redemptions.Save(ctx, tx, red)
		}

		red.Status = model.RedemptionStatusCompleted
		red.UsedAt = &now
		red.Code = nil
		return uc.redemptions.Save(ctx, tx, red)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		uc.log.Info().Str("redemption_id", red.ID).Msg("redemption expired at completion")
		return nil, domain.ErrExpired
	}
	uc.log.Info().Str("redemption_id", red.ID).Str("restaurant_id", staffRestaurantID).Msg("redemption completed")
	return red, nil
}

// List pages a customer's redemptions. A non-empty status filter groups the
// result in filter-list order (all of statuses[0] first, then statuses[1],
// ...), newest first within each group; page slicing applies to the grouped
// ordering.
func (uc *RedemptionUseCase) List(ctx context.Context, customerID string, statuses []model.RedemptionStatus, page, limit int) ([]*model.Redemption, error) {
	if customerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	for _, s := range statuses {
		switch s {
		case model.RedemptionStatusPending, model.RedemptionStatusActivated,
			model.RedemptionStatusCompleted, model.RedemptionStatusExpired:
		default:
			return nil, domain.ErrInvalidArgument
		}
	}
	limit, offset := clampPage(page, limit, uc.pageSize, uc.maxPageSize)
	return uc.redemptions.ListByCustomer(ctx, repository.NoTX, customerID, statuses, limit, offset)
}

// StaleActivatedIDs lists activated redemptions whose code has outlived the
// window, for the hygiene sweep. Expiry stays lazily enforced at Complete;
// the sweep only tidies records nobody is going to present.
func (uc *RedemptionUseCase) StaleActivatedIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > math.MaxInt32 {
		return nil, domain.ErrInvalidArgument
	}
	cutoff := time.Now().Add(-uc.codeTTL)
	return uc.redemptions.StaleActivatedIDs(ctx, repository.NoTX, cutoff, limit)
}

// ExpireOne transitions a single stale activated redemption to expired,
// clearing its code. Safe to race with Complete: the row lock plus the
// in-transaction re-check make whichever transition commits first win.
func (uc *RedemptionUseCase) ExpireOne(ctx context.Context, id string) error {
	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		red, err := uc.redemptions.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if red.Status != model.RedemptionStatusActivated {
			return nil // completed or already expired in the meantime
		}
		if !red.CodeExpired(time.Now(), uc.codeTTL) {
			return nil
		}
		red.Status = model.RedemptionStatusExpired
		red.Code = nil
		return uc.redemptions.Save(ctx, tx, red)
	})
}

// CountByStatus aggregates a restaurant's redemptions for the stats surface.
func (uc *RedemptionUseCase) CountByStatus(ctx context.Context, restaurantID string) (map[model.RedemptionStatus]int, error) {
	if restaurantID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.redemptions.CountByStatus(ctx, repository.NoTX, restaurantID)
}
