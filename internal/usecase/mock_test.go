//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"restaurant-loyalty/internal/config"
	"restaurant-loyalty/internal/domain"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestLoyaltyConfig() config.LoyaltyConfig {
	return config.LoyaltyConfig{
		CodeTTL:      15 * time.Minute,
		Reactivation: config.ReactivationReissue,
		PageSize:     20,
		MaxPageSize:  100,
	}
}

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func balanceKey(restaurantID, customerID string) string {
	return restaurantID + "|" + customerID
}

// =============================
// Repositories
// =============================

// ---- Mock BalanceRepository ----

type MockBalanceRepo struct {
	mu   sync.Mutex
	data map[string]*model.Balance // by restaurant|customer

	AdjustFunc      func(ctx context.Context, tx repository.Tx, restaurantID, customerID string, delta int) (bool, error)
	FindFunc        func(ctx context.Context, tx repository.Tx, restaurantID, customerID string) (*model.Balance, error)
	TotalPointsFunc func(ctx context.Context, tx repository.Tx, restaurantID string) (int, error)
}

var _ repository.BalanceRepository = (*MockBalanceRepo)(nil)

func NewMockBalanceRepo() *MockBalanceRepo {
	return &MockBalanceRepo{data: map[string]*model.Balance{}}
}

// Seed installs a balance row directly, bypassing the invariant checks.
func (r *MockBalanceRepo) Seed(restaurantID, customerID string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[balanceKey(restaurantID, customerID)] = &model.Balance{
		ID:           ulid.Make().String(),
		RestaurantID: restaurantID,
		CustomerID:   customerID,
		Points:       points,
	}
}

// Adjust mirrors the storage semantics: one guarded mutation under a lock,
// refusing anything that would leave the balance negative.
func (r *MockBalanceRepo) Adjust(ctx context.Context, tx repository.Tx, restaurantID, customerID string, delta int) (bool, error) {
	if r.AdjustFunc != nil {
		return r.AdjustFunc(ctx, tx, restaurantID, customerID, delta)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[balanceKey(restaurantID, customerID)]
	if !ok {
		if delta < 0 {
			return false, nil
		}
		r.data[balanceKey(restaurantID, customerID)] = &model.Balance{
			ID:           ulid.Make().String(),
			RestaurantID: restaurantID,
			CustomerID:   customerID,
			Points:       delta,
		}
		return true, nil
	}
	if b.Points+delta < 0 {
		return false, nil
	}
	b.Points += delta
	b.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockBalanceRepo) Find(ctx context.Context, tx repository.Tx, restaurantID, customerID string) (*model.Balance, error) {
	if r.FindFunc != nil {
		return r.FindFunc(ctx, tx, restaurantID, customerID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.data[balanceKey(restaurantID, customerID)]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockBalanceRepo) TotalPoints(ctx context.Context, tx repository.Tx, restaurantID string) (int, error) {
	if r.TotalPointsFunc != nil {
		return r.TotalPointsFunc(ctx, tx, restaurantID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, b := range r.data {
		if b.RestaurantID == restaurantID {
			total += b.Points
		}
	}
	return total, nil
}

// ---- Mock RewardItemRepository ----

type MockRewardItemRepo struct {
	mu   sync.Mutex
	data map[string]*model.RewardItem

	SaveFunc              func(ctx context.Context, tx repository.Tx, item *model.RewardItem) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error)
	FindByIDForUpdateFunc func(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error)
	ListFunc              func(ctx context.Context, tx repository.Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error)
	DecrementStockFunc    func(ctx context.Context, tx repository.Tx, id string) (bool, error)
	SetStockFunc          func(ctx context.Context, tx repository.Tx, id string, stock *int) error
	SoftDeleteFunc        func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.RewardItemRepository = (*MockRewardItemRepo)(nil)

func NewMockRewardItemRepo() *MockRewardItemRepo {
	return &MockRewardItemRepo{data: map[string]*model.RewardItem{}}
}

// Save mirrors the storage layer's column-limited upsert: on an existing row
// the stored stock counter and delete flag win over the saved copy's.
func (r *MockRewardItemRepo) Save(ctx context.Context, tx repository.Tx, item *model.RewardItem) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, item)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	if item.Stock != nil {
		cp.Stock = intp(*item.Stock)
	}
	if prev, ok := r.data[item.ID]; ok {
		cp.Stock = nil
		if prev.Stock != nil {
			cp.Stock = intp(*prev.Stock)
		}
		cp.IsDeleted = prev.IsDeleted
	}
	r.data[item.ID] = &cp
	return nil
}

func (r *MockRewardItemRepo) get(id string) (*model.RewardItem, error) {
	item, ok := r.data[id]
	if !ok || item.IsDeleted {
		return nil, domain.ErrNotFound
	}
	cp := *item
	if item.Stock != nil {
		cp.Stock = intp(*item.Stock)
	}
	return &cp, nil
}

func (r *MockRewardItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *MockRewardItemRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.RewardItem, error) {
	if r.FindByIDForUpdateFunc != nil {
		return r.FindByIDForUpdateFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *MockRewardItemRepo) List(ctx context.Context, tx repository.Tx, restaurantID string, limit, offset int) ([]*model.RewardItem, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, tx, restaurantID, limit, offset)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.RewardItem, 0, len(r.data))
	for _, item := range r.data {
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

func (r *MockRewardItemRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.DecrementStockFunc != nil {
		return r.DecrementStockFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.data[id]
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

func (r *MockRewardItemRepo) SetStock(ctx context.Context, tx repository.Tx, id string, stock *int) error {
	if r.SetStockFunc != nil {
		return r.SetStockFunc(ctx, tx, id, stock)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.data[id]
	if !ok || item.IsDeleted {
		return domain.ErrNotFound
	}
	item.Stock = nil
	if stock != nil {
		item.Stock = intp(*stock)
	}
	return nil
}

func (r *MockRewardItemRepo) SoftDelete(ctx context.Context, tx repository.Tx, id string) error {
	if r.SoftDeleteFunc != nil {
		return r.SoftDeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.data[id]
	if !ok || item.IsDeleted {
		return domain.ErrNotFound
	}
	item.IsDeleted = true
	item.IsActive = false
	return nil
}

// ---- Mock RedemptionRepository ----

type MockRedemptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Redemption // by id

	SaveFunc                func(ctx context.Context, tx repository.Tx, red *model.Redemption) error
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error)
	FindByCodeForUpdateFunc func(ctx context.Context, tx repository.Tx, code string) (*model.Redemption, error)
	CodeOutstandingFunc     func(ctx context.Context, tx repository.Tx, code string) (bool, error)
	ListByCustomerFunc      func(ctx context.Context, tx repository.Tx, customerID string, statuses []model.RedemptionStatus, limit, offset int) ([]*model.Redemption, error)
}

var _ repository.RedemptionRepository = (*MockRedemptionRepo)(nil)

func NewMockRedemptionRepo() *MockRedemptionRepo {
	return &MockRedemptionRepo{data: map[string]*model.Redemption{}}
}

func cloneRedemption(red *model.Redemption) *model.Redemption {
	cp := *red
	if red.Code != nil {
		cp.Code = strp(*red.Code)
	}
	if red.ActivatedAt != nil {
		t := *red.ActivatedAt
		cp.ActivatedAt = &t
	}
	if red.UsedAt != nil {
		t := *red.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}

// Save enforces the storage layer's write guards: a terminal row refuses
// further updates with ErrFinalized, and the outstanding-code uniqueness of
// the partial unique index surfaces as ErrCodeCollision.
func (r *MockRedemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.Redemption) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, red)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.data[red.ID]; ok && prev.Status.Terminal() {
		return domain.ErrFinalized
	}
	if red.Status == model.RedemptionStatusActivated && red.Code != nil {
		for id, other := range r.data {
			if id == red.ID {
				continue
			}
			if other.Status == model.RedemptionStatusActivated && other.Code != nil && *other.Code == *red.Code {
				return domain.ErrCodeCollision
			}
		}
	}
	r.data[red.ID] = cloneRedemption(red)
	return nil
}

func (r *MockRedemptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if red, ok := r.data[id]; ok {
		return cloneRedemption(red), nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockRedemptionRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Redemption, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *MockRedemptionRepo) FindByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.Redemption, error) {
	if r.FindByCodeForUpdateFunc != nil {
		return r.FindByCodeForUpdateFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, red := range r.data {
		if red.Code != nil && *red.Code == code && red.Status == model.RedemptionStatusActivated {
			return cloneRedemption(red), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockRedemptionRepo) CodeOutstanding(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	if r.CodeOutstandingFunc != nil {
		return r.CodeOutstandingFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, red := range r.data {
		if red.Status == model.RedemptionStatusActivated && red.Code != nil && *red.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockRedemptionRepo) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, statuses []model.RedemptionStatus, limit, offset int) ([]*model.Redemption, error) {
	if r.ListByCustomerFunc != nil {
		return r.ListByCustomerFunc(ctx, tx, customerID, statuses, limit, offset)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
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
	out := make([]*model.Redemption, 0, len(r.data))
	for _, red := range r.data {
		if red.CustomerID != customerID {
			continue
		}
		if len(statuses) > 0 && rank(red.Status) == len(statuses) {
			continue
		}
		out = append(out, cloneRedemption(red))
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

func (r *MockRedemptionRepo) StaleActivatedIDs(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, red := range r.data {
		if red.Status != model.RedemptionStatusActivated || red.ActivatedAt == nil {
			continue
		}
		if !red.ActivatedAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *MockRedemptionRepo) CountByStatus(ctx context.Context, tx repository.Tx, restaurantID string) (map[model.RedemptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.RedemptionStatus]int{}
	for _, red := range r.data {
		if red.RestaurantID == restaurantID {
			out[red.Status]++
		}
	}
	return out, nil
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx provides a way to control transaction behavior during tests.
// By default, it runs the function immediately without a real transaction.
// For specific transactional tests, you can assign a custom function to WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
