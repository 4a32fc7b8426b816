package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/config"
	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// CatalogUseCase implements reward-item management. Stock changes at
// redemption time belong to RedemptionUseCase; Restock here is the separate
// administrative path.
type CatalogUseCase struct {
	items       repository.RewardItemRepository
	pageSize    int
	maxPageSize int
	log         *zerolog.Logger
}

func NewCatalogUseCase(items repository.RewardItemRepository, cfg config.LoyaltyConfig, logger *zerolog.Logger) *CatalogUseCase {
	l := logger.With().Str("component", "CatalogUC").Logger()
	return &CatalogUseCase{
		items:       items,
		pageSize:    cfg.PageSize,
		maxPageSize: cfg.MaxPageSize,
		log:         &l,
	}
}

func (uc *CatalogUseCase) Create(ctx context.Context, restaurantID string, category model.RewardCategory, description string, pointsRequired int, stock *int) (*model.RewardItem, error) {
	item, err := model.NewRewardItem(uuid.NewString(), restaurantID, category, description, pointsRequired, stock)
	if err != nil {
		return nil, err
	}
	if err := uc.items.Save(ctx, repository.NoTX, item); err != nil {
		return nil, err
	}
	uc.log.Info().Str("item_id", item.ID).Str("restaurant_id", restaurantID).Msg("reward item created")
	return item, nil
}

// List pages active, non-deleted items; restaurantID may be empty.
func (uc *CatalogUseCase) List(ctx context.Context, restaurantID string, page, limit int) ([]*model.RewardItem, error) {
	limit, offset := clampPage(page, limit, uc.pageSize, uc.maxPageSize)
	return uc.items.List(ctx, repository.NoTX, restaurantID, limit, offset)
}

func (uc *CatalogUseCase) Get(ctx context.Context, id string) (*model.RewardItem, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.items.FindByID(ctx, repository.NoTX, id)
}

// Patch applies the allow-listed mutable fields. Snapshot-relevant fields on
// existing redemptions are untouched by construction.
func (uc *CatalogUseCase) Patch(ctx context.Context, id string, patch model.RewardItemPatch) (*model.RewardItem, error) {
	item, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(item); err != nil {
		return nil, err
	}
	if err := uc.items.Save(ctx, repository.NoTX, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SoftDelete retires an item from listings while keeping the row addressable
// for historical snapshots.
func (uc *CatalogUseCase) SoftDelete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	if err := uc.items.SoftDelete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	uc.log.Info().Str("item_id", id).Msg("reward item soft-deleted")
	return nil
}

// Restock overwrites the stock counter through a single-column write, so it
// never races the redemption-time decrement on the other columns.
func (uc *CatalogUseCase) Restock(ctx context.Context, id string, stock *int) (*model.RewardItem, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	if stock != nil && *stock < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := uc.items.SetStock(ctx, repository.NoTX, id, stock); err != nil {
		return nil, err
	}
	uc.log.Info().Str("item_id", id).Msg("reward item restocked")
	return uc.Get(ctx, id)
}

// clampPage converts 1-based page + requested limit into LIMIT/OFFSET,
// applying the configured default and cap.
func clampPage(page, limit, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
