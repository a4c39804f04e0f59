package application

import (
	"context"

	"predictions/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued domain events
	Commit() error

	// Rollback rolls back the transaction and discards queued domain events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	EventRepository() interfaces.EventRepository
	ParticipantRepository() interfaces.ParticipantRepository
	OutcomeRepository() interfaces.OutcomeRepository
	PointsHistoryRepository() interfaces.PointsHistoryRepository
	LeaderboardRepository() interfaces.LeaderboardRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
