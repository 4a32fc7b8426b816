package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Loyalty business outcomes
	ErrOutOfStock          = errors.New("reward item out of stock")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrInvalidCode         = errors.New("unknown redemption code")
	ErrForbidden           = errors.New("redemption belongs to another restaurant")
	ErrNotActivated        = errors.New("redemption is not activated")
	ErrExpired             = errors.New("redemption code expired")
	ErrAlreadyActivated    = errors.New("redemption already activated")
	ErrFinalized           = errors.New("redemption already finalized")

	// ErrCodeCollision signals a unique-index conflict on an outstanding code.
	// Never surfaced to callers; the activation loop retries on it.
	ErrCodeCollision = errors.New("redemption code collision")

	// Infrastructure failures, kept distinct from business outcomes
	ErrStoreUnavailable = errors.New("storage unavailable")
	ErrReadDatabaseRow  = errors.New("failed to read database row")
	ErrRateLimited      = errors.New("too many attempts")
)
