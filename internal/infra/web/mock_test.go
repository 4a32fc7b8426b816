package web

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"

	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---
//
// Thin in-memory implementations; the use cases under the handlers are the
// real ones. Each mirrors the storage invariant it stands in for.

type memBalanceRepo struct {
	mu   sync.Mutex
	data map[string]*model.Balance
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{data: map[string]*model.Balance{}}
}

var _ repository.BalanceRepository = (*memBalanceRepo)(nil)

func (m *memBalanceRepo) Adjust(ctx context.Context, tx repository.Tx, restaurantID, customerID string, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := restaurantID + "|" + customerID
	b, ok := m.data[key]
	if !ok {
		if delta < 0 {
			return false, nil
		}
		m.data[key] = &model.Balance{ID: ulid.Make().String(), RestaurantID: restaurantID, CustomerID: customerID, Points: delta}
		return true, nil
	}
	if b.Points+delta < 0 {
		return false, nil
	}
	b.Points += delta
	return true, nil
}

func (m *memBalanceRepo) Find(ctx context.Context, tx repository.Tx, restaurantID, customerID string) (*model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.data[restaurantID+"|"+customerID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memBalanceRepo) TotalPoints(ctx context.Context, tx repository.Tx, restaurantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.data {
		if b.RestaurantID == restaurantID {
			total += b.Points
		}
	}
	return total, nil
}

type memItemRepo struct {
	mu   sync.Mutex
	data map[string]*model.RewardItem
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{data: map[string]*model.RewardItem{}}
}

var _ repository.RewardItemRepository = (*memItemRepo)(nil)

func (m *memItemRepo) Save(ctx context.Context, tx repository.Tx, item *model.RewardItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	if item.Stock != nil {
		s := *item.Stock
		cp.Stock = &s
	}
	if prev, ok := m.data[item.ID]; ok {
		cp.Stock = nil
		if prev.Stock != nil {
			s := *prev.Stock
			cp.Stock = &s
		}
		cp.IsDeleted = prev.IsDeleted
	}
	m.data[item.ID] = &cp
	return nil
}

func (m *memItemRepo) find(id string) (*model.RewardItem, error) {
	item, ok := m.data[id]
	if !ok || item.IsDeleted {
		return nil, domain.ErrNotFound
	}
	cp := *item
	if item.Stock != nil {
		s := *item.Stock
		cp.Stock = &s
	}
	return &cp, nil
}

func (m *memItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *memItemRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *memItemRepo) List(ctx context.Context, tx repository.Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RewardItem
	for _, item := range m.data {
		if item.IsDeleted || !item.IsActive {
			continue
		}
		if restaurantID != "" && item.RestaurantID != restaurantID {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memItemRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.data[id]
	if !ok || item.IsDeleted {
		return false, domain.ErrNotFound
	}
	if item.Stock == nil {
		return true, nil
	}
	if *item.Stock <= 0 {
		return false, nil
	}
	*item.Stock--
	return true, nil
}

func (m *memItemRepo) SetStock(ctx context.Context, tx repository.Tx, id string, stock *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.data[id]
	if !ok || item.IsDeleted {
		return domain.ErrNotFound
	}
	item.Stock = nil
	if stock != nil {
		s := *stock
		item.Stock = &s
	}
	return nil
}

func (m *memItemRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.data[id]
	if !ok || item.IsDeleted {
		return domain.ErrNotFound
	}
	item.IsDeleted = true
	item.IsActive = false
	return nil
}

type memRedemptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Redemption
}

func newMemRedemptionRepo() *memRedemptionRepo {
	return &memRedemptionRepo{data: map[string]*model.Redemption{}}
}

var _ repository.RedemptionRepository = (*memRedemptionRepo)(nil)

func cloneRed(r *model.Redemption) *model.Redemption {
	cp := *r
	if r.Code != nil {
		c := *r.Code
		cp.Code = &c
	}
	if r.ActivatedAt != nil {
		t := *r.ActivatedAt
		cp.ActivatedAt = &t
	}
	if r.UsedAt != nil {
		t := *r.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}

func (m *memRedemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.data[red.ID]; ok && prev.Status.Terminal() {
		return domain.ErrFinalized
	}
	if red.Status == model.RedemptionStatusActivated && red.Code != nil {
		for id, other := range m.data {
			if id != red.ID && other.Status == model.RedemptionStatusActivated &&
				other.Code != nil && *other.Code == *red.Code {
				return domain.ErrCodeCollision
			}
		}
	}
	m.data[red.ID] = cloneRed(red)
	return nil
}

func (m *memRedemptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.data[id]; ok {
		return cloneRed(r), nil
	}
	return nil, domain.ErrNotFound
}

func (m *memRedemptionRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	return m.FindByID(ctx, tx, id)
}

func (m *memRedemptionRepo) FindByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.data {
		if r.Status == model.RedemptionStatusActivated && r.Code != nil && *r.Code == code {
			return cloneRed(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRedemptionRepo) CodeOutstanding(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.data {
		if r.Status == model.RedemptionStatusActivated && r.Code != nil && *r.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRedemptionRepo) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, statuses []model.RedemptionStatus, limit, offset int) ([]*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rank := func(s model.RedemptionStatus) int {
		if len(statuses) == 0 {
			return 0
		}
		for i, f := range statuses {
			if f == s {
				return i
			}
		}
		return len(statuses)
	}
	var out []*model.Redemption
	for _, r := range m.data {
		if r.CustomerID != customerID {
			continue
		}
		if len(statuses) > 0 && rank(r.Status) == len(statuses) {
			continue
		}
		out = append(out, cloneRed(r))
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i].Status), rank(out[j].Status)
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRedemptionRepo) StaleActivatedIDs(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.data {
		if r.Status == model.RedemptionStatusActivated && r.ActivatedAt != nil && !r.ActivatedAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memRedemptionRepo) CountByStatus(ctx context.Context, tx repository.Tx, restaurantID string) (map[model.RedemptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.RedemptionStatus]int{}
	for _, r := range m.data {
		if r.RestaurantID == restaurantID {
			out[r.Status]++
		}
	}
	return out, nil
}

// --- Mock transaction manager ---

type memTxManager struct{}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// --- Mock redis client (rate limiter backing) ---

type memRedisClient struct {
	mu       sync.Mutex
	counters map[string]int64
	incrErr  error
}

func newMemRedisClient() *memRedisClient {
	return &memRedisClient{counters: map[string]int64{}}
}

func (m *memRedisClient) Ping(ctx context.Context) error { return nil }

func (m *memRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (m *memRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.counters[key]; ok {
		return strconv.FormatInt(v, 10), nil
	}
	return "", domain.ErrNotFound
}

func (m *memRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *memRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.counters, k)
	}
	return nil
}

func (m *memRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}

func (m *memRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return int64(0), nil
}

func (m *memRedisClient) Close() error { return nil }
