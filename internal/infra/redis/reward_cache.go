package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
	"restaurant-loyalty/internal/infra/metrics"
)

var _ repository.RewardItemRepository = (*rewardItemRepoCacheDecorator)(nil)

// rewardItemRepoCacheDecorator caches reward-item reads. Only plain FindByID
// hits the cache: the locking read and the stock decrement always pass
// through, and every write invalidates the item key.
type rewardItemRepoCacheDecorator struct {
	inner repository.RewardItemRepository
	cache RedisClient
	ttl   time.Duration
}

func NewRewardItemRepoCacheDecorator(inner repository.RewardItemRepository, cache RedisClient, ttl time.Duration) repository.RewardItemRepository {
	return &rewardItemRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func rewardItemKey(id string) string { return fmt.Sprintf("reward_item:%s", id) }

func (d *rewardItemRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	key := rewardItemKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var item model.RewardItem
		if json.Unmarshal([]byte(val), &item) == nil {
			metrics.IncCacheRequest("reward_item", "hit")
			return &item, nil
		}
	} else if err != redis.Nil {
		metrics.IncCacheError("reward_item")
	}

	metrics.IncCacheRequest("reward_item", "miss")
	item, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(item); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return item, nil
}

func (d *rewardItemRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, item *model.RewardItem) error {
	_ = d.cache.Del(ctx, rewardItemKey(item.ID))
	return d.inner.Save(ctx, tx, item)
}

// FindByIDForUpdate must observe the live row, never a cached copy.
func (d *rewardItemRepoCacheDecorator) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	return d.inner.FindByIDForUpdate(ctx, tx, id)
}

func (d *rewardItemRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error) {
	return d.inner.List(ctx, tx, restaurantID, limit, offset)
}

func (d *rewardItemRepoCacheDecorator) DecrementStock(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	_ = d.cache.Del(ctx, rewardItemKey(id))
	return d.inner.DecrementStock(ctx, tx, id)
}

func (d *rewardItemRepoCacheDecorator) SetStock(ctx context.Context, tx repository.Tx, id string, stock *int) error {
	_ = d.cache.Del(ctx, rewardItemKey(id))
	return d.inner.SetStock(ctx, tx, id, stock)
}

func (d *rewardItemRepoCacheDecorator) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	_ = d.cache.Del(ctx, rewardItemKey(id))
	return d.inner.SoftDelete(ctx, tx, id)
}
