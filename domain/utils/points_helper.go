package utils

import (
	"context"
	"fmt"

	"predictions/domain/entities"
	"predictions/domain/events"
	"predictions/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ApplyPointsChange atomically adjusts a user's points, records the history
// row and emits a PointsChangeEvent. It is the single entry point for
// settlement balance changes. A zero delta is a no-op.
func ApplyPointsChange(
	ctx context.Context,
	userRepo interfaces.UserRepository,
	historyRepo interfaces.PointsHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	userID int64,
	eventID int64,
	delta int64,
	reason entities.PointsReason,
	metadata map[string]any,
) (*entities.PointsHistory, error) {
	if delta == 0 {
		return nil, nil
	}

	before, after, err := userRepo.AddPoints(ctx, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to update points for user %d: %w", userID, err)
	}

	history := &entities.PointsHistory{
		UserID:       userID,
		PointsBefore: before,
		PointsAfter:  after,
		ChangeAmount: delta,
		Reason:       reason,
		Metadata:     metadata,
		EventID:      &eventID,
	}

	if err := RecordPointsChange(ctx, historyRepo, eventPublisher, history); err != nil {
		return nil, err
	}

	return history, nil
}

// RecordPointsChange records a history entry and emits the matching event
func RecordPointsChange(ctx context.Context, historyRepo interfaces.PointsHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.PointsHistory) error {
	if err := history.Validate(); err != nil {
		return fmt.Errorf("invalid points history: %w", err)
	}

	if err := historyRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record points history: %w", err)
	}

	var eventID int64
	if history.EventID != nil {
		eventID = *history.EventID
	}

	event := events.PointsChangeEvent{
		UserID:       history.UserID,
		EventID:      eventID,
		OldPoints:    history.PointsBefore,
		NewPoints:    history.PointsAfter,
		ChangeAmount: history.ChangeAmount,
		Reason:       string(history.Reason),
	}
	log.WithFields(log.Fields{
		"userID":       event.UserID,
		"eventID":      event.EventID,
		"oldPoints":    event.OldPoints,
		"newPoints":    event.NewPoints,
		"changeAmount": event.ChangeAmount,
		"reason":       event.Reason,
	}).Debug("Publishing PointsChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish points change event")
	}

	return nil
}
