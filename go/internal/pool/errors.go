package pool

import "errors"

var (
	// ErrNotFound is returned when no pool exists for an ID
	ErrNotFound = errors.New("pool not found")

	// ErrInvalidPool wraps every precondition violation on a pool record
	ErrInvalidPool = errors.New("invalid pool")

	ErrMissingID       = errors.New("pool id is required")
	ErrZeroCapacity    = errors.New("max tickets must be positive")
	ErrNegativePrice   = errors.New("ticket price must be positive")
	ErrNegativePrize   = errors.New("prize pool must not be negative")
	ErrNegativeSold    = errors.New("sold tickets must not be negative")
	ErrOversold        = errors.New("sold tickets exceed max tickets")
	ErrWinnerWhileOpen = errors.New("winner set while pool still accepts purchases")
	ErrSoldDecreased   = errors.New("sold tickets may not decrease while pool is active")
	ErrWinnerCleared   = errors.New("recorded winner may not be cleared")

	// ErrNotPurchasable is returned when tickets are bought from a paused or sold-out pool
	ErrNotPurchasable = errors.New("pool is not accepting purchases")
)
