package model

import (
	"time"
)

// Balance is a customer's point total scoped to one restaurant.
// There is exactly one row per (restaurant, customer) pair; it is created
// lazily on the first positive adjustment and never deleted.
type Balance struct {
	ID           string // UUID
	RestaurantID string
	CustomerID   string
	Points       int // >= 0 always
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
