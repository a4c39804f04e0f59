package interfaces

import (
	"context"
	"time"

	"predictions/domain/entities"
	"predictions/domain/events"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user with available points calculated
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// GetByIDForUpdate row-locks the user for the current transaction before
	// reading it, serialising concurrent stakes by the same user
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*entities.User, error)

	// Create creates a new user with the initial points balance
	Create(ctx context.Context, username, email string, initialPoints int64) (*entities.User, error)

	// AddPoints atomically adds delta to the user's points and returns the
	// balance before and after the change
	AddPoints(ctx context.Context, id int64, delta int64) (before, after int64, err error)

	// SetSuspended toggles the suspension flag
	SetSuspended(ctx context.Context, id int64, suspended bool) error
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create inserts a new event and fills in generated fields
	Create(ctx context.Context, event *entities.Event) error

	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id int64) (*entities.Event, error)

	// GetByIDForUpdate retrieves an event and row-locks it for the current transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Event, error)

	// ExistsByTitle checks whether an event with the given title exists
	ExistsByTitle(ctx context.Context, title string) (bool, error)

	// GetStatus returns the current status of an event
	GetStatus(ctx context.Context, id int64) (entities.EventStatus, error)

	// TransitionStatus moves the event to `to` only if its current status is in
	// `from`. Returns false when no row matched.
	TransitionStatus(ctx context.Context, id int64, from []entities.EventStatus, to entities.EventStatus) (bool, error)

	// LockExpired moves every OPEN event whose end time is before now to LOCKED
	// and returns the locked events
	LockExpired(ctx context.Context, now time.Time) ([]*entities.Event, error)

	// ListByStatus returns events in a status ordered by end time ascending
	ListByStatus(ctx context.Context, status entities.EventStatus) ([]*entities.Event, error)

	// FlagStale marks LOCKED events that ended before cutoff and were not yet
	// flagged, returning the newly flagged events
	FlagStale(ctx context.Context, cutoff time.Time) ([]*entities.Event, error)

	// RecordStake adds amount to the prize pool and increments the bet count
	RecordStake(ctx context.Context, id int64, amount int64) error

	// MarkResolved finalises a RESOLVING event as RESOLVED
	MarkResolved(ctx context.Context, id int64, correctAnswer string, finalPrice *decimal.Decimal, platformFee, prizePool int64) error
}

// ParticipantRepository defines the interface for stake data access
type ParticipantRepository interface {
	// Create inserts a stake. Returns entities.ErrDuplicateStake when the user
	// already staked on the event.
	Create(ctx context.Context, participant *entities.Participant) error

	// GetByEventAndUser returns a user's stake on an event
	GetByEventAndUser(ctx context.Context, eventID, userID int64) (*entities.Participant, error)

	// GetByEvent returns all stakes on an event ordered by participant ID
	GetByEvent(ctx context.Context, eventID int64) ([]*entities.Participant, error)

	// GetPoolsByOption returns the staked total per prediction value
	GetPoolsByOption(ctx context.Context, eventID int64) (map[string]int64, error)

	// MarkSettled flags the given participants as settled
	MarkSettled(ctx context.Context, participantIDs []int64) error
}

// OutcomeRepository defines the interface for settlement outcome data access
type OutcomeRepository interface {
	// CreateOutcome records one participant's outcome
	CreateOutcome(ctx context.Context, outcome *entities.EventOutcome) error

	// CreateFee records a platform fee row
	CreateFee(ctx context.Context, fee *entities.PlatformFee) error

	// GetOutcomesByEvent returns the outcomes of an event ordered by participant ID
	GetOutcomesByEvent(ctx context.Context, eventID int64) ([]*entities.EventOutcome, error)

	// GetFeeTotalByEvent sums the platform fee rows for an event
	GetFeeTotalByEvent(ctx context.Context, eventID int64) (int64, error)
}

// PointsHistoryRepository defines the interface for points audit tracking
type PointsHistoryRepository interface {
	// Record creates a new history entry
	Record(ctx context.Context, history *entities.PointsHistory) error

	// GetByUser returns the most recent history entries for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error)

	// GetByEvent returns all history entries written for an event
	GetByEvent(ctx context.Context, eventID int64) ([]*entities.PointsHistory, error)
}

// LeaderboardRepository defines the interface for ranking queries
type LeaderboardRepository interface {
	// CountUsers returns the number of ranked users
	CountUsers(ctx context.Context) (int64, error)

	// GetPage returns users ordered by points descending then ID ascending
	GetPage(ctx context.Context, limit, offset int) ([]entities.LeaderboardEntry, error)
}

// LeaderboardCache caches rendered leaderboard pages
type LeaderboardCache interface {
	Get(ctx context.Context, page, limit int) (*entities.LeaderboardPage, bool)
	Set(ctx context.Context, page *entities.LeaderboardPage)
	Invalidate(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding
// transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
