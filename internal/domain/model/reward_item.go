package model

import (
	"time"

	"restaurant-loyalty/internal/domain"
)

type RewardCategory string

const (
	RewardCategoryFood       RewardCategory = "food"
	RewardCategoryDrink      RewardCategory = "drink"
	RewardCategoryDiscount   RewardCategory = "discount"
	RewardCategoryMerch      RewardCategory = "merch"
	RewardCategoryExperience RewardCategory = "experience"
)

func (c RewardCategory) Valid() bool {
	switch c {
	case RewardCategoryFood, RewardCategoryDrink, RewardCategoryDiscount,
		RewardCategoryMerch, RewardCategoryExperience:
		return true
	}
	return false
}

// RewardItem is one redeemable catalog entry, scoped to a restaurant.
// Stock is nil for unlimited items. Soft-deleted items stay addressable by id
// so historical redemption snapshots keep a valid origin, but they never show
// up in catalog listings.
type RewardItem struct {
	ID             string // UUID
	RestaurantID   string
	Category       RewardCategory
	Description    string
	PointsRequired int  // > 0
	Stock          *int // nil = unlimited, otherwise >= 0
	IsActive       bool
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRewardItem validates and builds a catalog entry.
func NewRewardItem(id, restaurantID string, category RewardCategory, description string, pointsRequired int, stock *int) (*RewardItem, error) {
	if id == "" || restaurantID == "" || description == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !category.Valid() || pointsRequired <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if stock != nil && *stock < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &RewardItem{
		ID:             id,
		RestaurantID:   restaurantID,
		Category:       category,
		Description:    description,
		PointsRequired: pointsRequired,
		Stock:          stock,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RewardItemPatch is the allow-list of mutable catalog fields. Anything not
// present here (restaurant, stock, delete flag) has its own operation.
type RewardItemPatch struct {
	Category       *RewardCategory
	Description    *string
	PointsRequired *int
	IsActive       *bool
}

// Apply copies the set fields onto the item, validating as it goes.
func (p RewardItemPatch) Apply(item *RewardItem) error {
	if p.Category != nil {
		if !p.Category.Valid() {
			return domain.ErrInvalidArgument
		}
		item.Category = *p.Category
	}
	if p.Description != nil {
		if *p.Description == "" {
			return domain.ErrInvalidArgument
		}
		item.Description = *p.Description
	}
	if p.PointsRequired != nil {
		if *p.PointsRequired <= 0 {
			return domain.ErrInvalidArgument
		}
		item.PointsRequired = *p.PointsRequired
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
	item.UpdatedAt = time.Now()
	return nil
}
