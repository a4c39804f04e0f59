package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"predictions/domain/entities"
	"predictions/domain/interfaces"
	"predictions/domain/services"
	"predictions/infrastructure/observability"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventCoordinator runs every event operation inside its own unit of work.
// Domain events queued by the services leave the process only after commit.
type EventCoordinator struct {
	uowFactory       UnitOfWorkFactory
	leaderboardCache interfaces.LeaderboardCache
}

// NewEventCoordinator creates a new coordinator. leaderboardCache may be nil.
func NewEventCoordinator(uowFactory UnitOfWorkFactory, leaderboardCache interfaces.LeaderboardCache) *EventCoordinator {
	return &EventCoordinator{
		uowFactory:       uowFactory,
		leaderboardCache: leaderboardCache,
	}
}

func lifecycleService(uow UnitOfWork) interfaces.LifecycleService {
	return services.NewLifecycleService(
		uow.EventRepository(),
		uow.ParticipantRepository(),
		uow.OutcomeRepository(),
		uow.UserRepository(),
		uow.EventBus(),
	)
}

// withUnitOfWork begins a unit of work, runs fn and commits when commit is true.
// Read-only callers pass commit=false and the transaction is rolled back.
func (c *EventCoordinator) withUnitOfWork(ctx context.Context, commit bool, fn func(uow UnitOfWork) error) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	if commit {
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return nil
}

// CreateEvent opens a new event
func (c *EventCoordinator) CreateEvent(ctx context.Context, params entities.CreateEventParams) (*entities.Event, error) {
	var event *entities.Event
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		var err error
		event, err = lifecycleService(uow).CreateEvent(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// PlaceStake records a stake for a user
func (c *EventCoordinator) PlaceStake(ctx context.Context, eventID, userID int64, prediction string, amount int64) (*entities.Participant, error) {
	var participant *entities.Participant
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		var err error
		participant, err = lifecycleService(uow).PlaceStake(ctx, eventID, userID, prediction, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.GetMetrics().RecordStakePlaced()
	return participant, nil
}

// GetEvent returns an event by ID
func (c *EventCoordinator) GetEvent(ctx context.Context, eventID int64) (*entities.Event, error) {
	var event *entities.Event
	err := c.withUnitOfWork(ctx, false, func(uow UnitOfWork) error {
		var err error
		event, err = lifecycleService(uow).GetEvent(ctx, eventID)
		return err
	})
	return event, err
}

// GetOdds returns the live multipliers of an event
func (c *EventCoordinator) GetOdds(ctx context.Context, eventID int64) ([]entities.OptionOdds, error) {
	var odds []entities.OptionOdds
	err := c.withUnitOfWork(ctx, false, func(uow UnitOfWork) error {
		var err error
		odds, err = lifecycleService(uow).GetOdds(ctx, eventID)
		return err
	})
	return odds, err
}

// ListPendingResolution returns LOCKED events ordered by end time
func (c *EventCoordinator) ListPendingResolution(ctx context.Context) ([]*entities.Event, error) {
	var pending []*entities.Event
	err := c.withUnitOfWork(ctx, false, func(uow UnitOfWork) error {
		var err error
		pending, err = lifecycleService(uow).ListPendingResolution(ctx)
		return err
	})
	return pending, err
}

// LockExpiredEvents locks every OPEN event whose end time has passed
func (c *EventCoordinator) LockExpiredEvents(ctx context.Context) ([]*entities.Event, error) {
	var locked []*entities.Event
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		var err error
		locked, err = lifecycleService(uow).LockExpiredEvents(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.GetMetrics().RecordTransitions(string(entities.EventStatusLocked), len(locked))
	return locked, nil
}

// FlagStaleEvents flags LOCKED events older than grace for admin attention
func (c *EventCoordinator) FlagStaleEvents(ctx context.Context, grace time.Duration) ([]*entities.Event, error) {
	var flagged []*entities.Event
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		var err error
		flagged, err = lifecycleService(uow).FlagStaleEvents(ctx, grace)
		return err
	})
	return flagged, err
}

// CancelEvent cancels an OPEN or LOCKED event
func (c *EventCoordinator) CancelEvent(ctx context.Context, eventID int64) (*entities.CancelResult, error) {
	var result *entities.CancelResult
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		var err error
		result, err = lifecycleService(uow).CancelEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.GetMetrics().RecordTransitions(string(entities.EventStatusCanceled), 1)
	return result, nil
}

// ResolveEvent settles an event in one transaction. Resolving an event that
// is already RESOLVED is a no-op reported through AlreadyResolved.
func (c *EventCoordinator) ResolveEvent(ctx context.Context, eventID int64, correctAnswer string, finalPrice *decimal.Decimal) (*entities.SettlementResult, error) {
	start := time.Now()

	var result *entities.SettlementResult
	err := c.withUnitOfWork(ctx, true, func(uow UnitOfWork) error {
		settlement := services.NewSettlementService(
			uow.EventRepository(),
			uow.ParticipantRepository(),
			uow.OutcomeRepository(),
			uow.UserRepository(),
			uow.PointsHistoryRepository(),
			uow.EventBus(),
		)
		var err error
		result, err = settlement.ResolveEvent(ctx, eventID, correctAnswer, finalPrice)
		return err
	})

	metrics := observability.GetMetrics()
	switch {
	case err == nil:
		outcome := observability.OutcomeResolved
		if result.Refunded {
			outcome = observability.OutcomeRefunded
		}
		metrics.RecordSettlement(outcome, time.Since(start), result.TotalPaid, result.FeeCollected)
		return result, nil

	case errors.Is(err, entities.ErrAlreadyResolved):
		metrics.RecordSettlement(observability.OutcomeAlreadyResolved, time.Since(start), 0, 0)
		log.WithField("event_id", eventID).Info("Event already resolved, nothing to do")
		return &entities.SettlementResult{EventID: eventID, AlreadyResolved: true}, nil

	case errors.Is(err, entities.ErrConcurrentResolution):
		metrics.RecordSettlement(observability.OutcomeConflict, time.Since(start), 0, 0)

	case errors.Is(err, entities.ErrInvalidResolutionInput),
		errors.Is(err, entities.ErrDataIntegrity),
		errors.Is(err, entities.ErrInvalidState),
		errors.Is(err, entities.ErrEventNotFound):
		metrics.RecordSettlement(observability.OutcomeRejected, time.Since(start), 0, 0)

	default:
		metrics.RecordSettlement(observability.OutcomeError, time.Since(start), 0, 0)
	}

	log.WithFields(log.Fields{
		"event_id": eventID,
		"error":    err,
	}).Warn("Event settlement failed")
	return nil, err
}

// GetLeaderboard returns one page of the global ranking
func (c *EventCoordinator) GetLeaderboard(ctx context.Context, page, limit int) (*entities.LeaderboardPage, error) {
	var result *entities.LeaderboardPage
	err := c.withUnitOfWork(ctx, false, func(uow UnitOfWork) error {
		var err error
		result, err = services.NewLeaderboardService(uow.LeaderboardRepository(), c.leaderboardCache).GetPage(ctx, page, limit)
		return err
	})
	return result, err
}

// GetPointsHistory returns a user's most recent balance changes
func (c *EventCoordinator) GetPointsHistory(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error) {
	var history []*entities.PointsHistory
	err := c.withUnitOfWork(ctx, false, func(uow UnitOfWork) error {
		var err error
		history, err = services.NewPointsService(uow.UserRepository(), uow.PointsHistoryRepository()).GetHistory(ctx, userID, limit)
		return err
	})
	return history, err
}
