package model

import (
	"time"
)

type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusActivated RedemptionStatus = "activated"
	RedemptionStatusCompleted RedemptionStatus = "completed"
	RedemptionStatusExpired   RedemptionStatus = "expired"
)

// Terminal reports whether the status allows no further transitions.
func (s RedemptionStatus) Terminal() bool {
	return s == RedemptionStatusCompleted || s == RedemptionStatusExpired
}

// RewardSnapshot is the immutable copy of catalog fields captured when a
// redemption is created. Later catalog edits or soft-deletes never touch it.
type RewardSnapshot struct {
	ItemID         string
	Category       RewardCategory
	Description    string
	PointsRequired int
}

// Redemption is one spend transaction tracked through its lifecycle:
// pending -> activated -> completed | expired. Code is non-nil only while
// the redemption sits in activated; it is cleared on every exit from that
// state, including the expiry path.
type Redemption struct {
	ID           string // ULID, time-sortable
	CustomerID   string
	RestaurantID string
	Reward       RewardSnapshot
	Status       RedemptionStatus
	Code         *string
	ActivatedAt  *time.Time
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// SnapshotOf captures the redeemable fields of a catalog item.
func SnapshotOf(item *RewardItem) RewardSnapshot {
	return RewardSnapshot{
		ItemID:         item.ID,
		Category:       item.Category,
		Description:    item.Description,
		PointsRequired: item.PointsRequired,
	}
}

// CodeExpired reports whether an activated redemption's code has outlived the
// window. Callers must have checked Status == activated first.
func (r *Redemption) CodeExpired(now time.Time, window time.Duration) bool {
	if r.ActivatedAt == nil {
		return true
	}
	return now.Sub(*r.ActivatedAt) > window
}
