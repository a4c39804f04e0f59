package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLockHeld is returned by a LockManager when another instance owns the lock
var ErrLockHeld = errors.New("lock held by another instance")

// LockManager hands out cross-instance locks with a TTL
type LockManager interface {
	// Acquire returns an idempotent unlock function, or ErrLockHeld
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// PriceSource provides the latest observed price for an event category
type PriceSource interface {
	// LatestPrice returns the price and when it was observed. ok is false
	// when no price is known for the category.
	LatestPrice(ctx context.Context, category string) (price decimal.Decimal, observedAt time.Time, ok bool, err error)
}
