package interfaces

import (
	"context"
	"time"

	"predictions/domain/entities"

	"github.com/shopspring/decimal"
)

// LifecycleService drives events from creation to lock, flag and cancel
type LifecycleService interface {
	// CreateEvent validates and opens a new event
	CreateEvent(ctx context.Context, params entities.CreateEventParams) (*entities.Event, error)

	// PlaceStake records a user's prediction on an open event
	PlaceStake(ctx context.Context, eventID, userID int64, prediction string, amount int64) (*entities.Participant, error)

	// GetEvent returns an event or entities.ErrEventNotFound
	GetEvent(ctx context.Context, eventID int64) (*entities.Event, error)

	// GetOdds returns the live multiplier per option
	GetOdds(ctx context.Context, eventID int64) ([]entities.OptionOdds, error)

	// LockExpiredEvents transitions OPEN events past their end time to LOCKED
	LockExpiredEvents(ctx context.Context) ([]*entities.Event, error)

	// ListPendingResolution returns LOCKED events ordered by end time
	ListPendingResolution(ctx context.Context) ([]*entities.Event, error)

	// FlagStaleEvents flags LOCKED events that outlived the grace period
	FlagStaleEvents(ctx context.Context, grace time.Duration) ([]*entities.Event, error)

	// CancelEvent cancels an OPEN or LOCKED event and voids every stake
	CancelEvent(ctx context.Context, eventID int64) (*entities.CancelResult, error)
}

// SettlementService resolves events and distributes the prize pool
type SettlementService interface {
	// ResolveEvent settles a LOCKED event against the correct answer. When
	// correctAnswer is empty the answer is derived from finalPrice.
	ResolveEvent(ctx context.Context, eventID int64, correctAnswer string, finalPrice *decimal.Decimal) (*entities.SettlementResult, error)
}

// LeaderboardService serves the paginated global ranking
type LeaderboardService interface {
	GetPage(ctx context.Context, page, limit int) (*entities.LeaderboardPage, error)
}

// PointsService exposes balance history to users
type PointsService interface {
	GetHistory(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error)
}
