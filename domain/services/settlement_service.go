package services

import (
	"context"
	"fmt"

	"predictions/domain/entities"
	"predictions/domain/events"
	"predictions/domain/interfaces"
	"predictions/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	calculator      *SettlementCalculator
	eventRepo       interfaces.EventRepository
	participantRepo interfaces.ParticipantRepository
	outcomeRepo     interfaces.OutcomeRepository
	userRepo        interfaces.UserRepository
	historyRepo     interfaces.PointsHistoryRepository
	eventPublisher  interfaces.EventPublisher
}

// NewSettlementService creates a new settlement service. All repositories are
// expected to share one transaction; the caller owns commit and rollback.
func NewSettlementService(
	eventRepo interfaces.EventRepository,
	participantRepo interfaces.ParticipantRepository,
	outcomeRepo interfaces.OutcomeRepository,
	userRepo interfaces.UserRepository,
	historyRepo interfaces.PointsHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.SettlementService {
	return &settlementService{
		calculator:      NewSettlementCalculator(),
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		outcomeRepo:     outcomeRepo,
		userRepo:        userRepo,
		historyRepo:     historyRepo,
		eventPublisher:  eventPublisher,
	}
}

// ResolveEvent settles a LOCKED event
func (s *settlementService) ResolveEvent(ctx context.Context, eventID int64, correctAnswer string, finalPrice *decimal.Decimal) (*entities.SettlementResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrEventNotFound
	}

	if err := statusError(event.ID, event.Status); err != nil {
		return nil, err
	}

	answer, err := s.calculator.ResolveAnswer(event, correctAnswer, finalPrice)
	if err != nil {
		return nil, err
	}

	// Claim the event. Only one resolver can move it out of LOCKED.
	claimed, err := s.eventRepo.TransitionStatus(ctx, eventID,
		[]entities.EventStatus{entities.EventStatusLocked}, entities.EventStatusResolving)
	if err != nil {
		return nil, fmt.Errorf("failed to claim event for resolution: %w", err)
	}
	if !claimed {
		current, err := s.eventRepo.GetStatus(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read event status: %w", err)
		}
		if err := statusError(eventID, current); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: event %d could not be claimed", entities.ErrConcurrentResolution, eventID)
	}

	participants, err := s.participantRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	plan, err := s.calculator.Calculate(participants, answer, event.FeeRate)
	if err != nil {
		return nil, err
	}

	result := &entities.SettlementResult{
		EventID:       eventID,
		CorrectAnswer: answer,
		TotalPool:     plan.TotalPool,
		TotalPaid:     plan.TotalPaid,
		FeeCollected:  plan.TotalFee,
		Refunded:      plan.Refunded,
	}

	settledIDs := make([]int64, 0, len(plan.Payouts))
	for _, payout := range plan.Payouts {
		if err := s.applyPayout(ctx, event, payout); err != nil {
			return nil, err
		}
		switch payout.Result {
		case entities.OutcomeWin:
			result.Winners++
		case entities.OutcomeLoss:
			result.Losers++
		}
		settledIDs = append(settledIDs, payout.ParticipantID)
	}

	if len(settledIDs) > 0 {
		if err := s.participantRepo.MarkSettled(ctx, settledIDs); err != nil {
			return nil, fmt.Errorf("failed to mark participants settled: %w", err)
		}
	}

	if err := s.eventRepo.MarkResolved(ctx, eventID, answer, finalPrice, plan.TotalFee, plan.TotalPool); err != nil {
		return nil, fmt.Errorf("failed to mark event resolved: %w", err)
	}

	if err := s.eventPublisher.Publish(events.EventStateChangeEvent{
		EventID:  eventID,
		Title:    event.Title,
		OldState: string(entities.EventStatusLocked),
		NewState: string(entities.EventStatusResolved),
	}); err != nil {
		log.WithError(err).Error("Failed to publish event state change event")
	}
	if err := s.eventPublisher.Publish(events.EventResolvedEvent{
		EventID:       eventID,
		Title:         event.Title,
		CorrectAnswer: answer,
		Winners:       result.Winners,
		TotalPaid:     result.TotalPaid,
		FeeCollected:  result.FeeCollected,
		Refunded:      result.Refunded,
	}); err != nil {
		log.WithError(err).Error("Failed to publish event resolved event")
	}

	log.WithFields(log.Fields{
		"event_id":       eventID,
		"correct_answer": answer,
		"participants":   len(plan.Payouts),
		"winners":        result.Winners,
		"total_pool":     result.TotalPool,
		"total_paid":     result.TotalPaid,
		"fee_collected":  result.FeeCollected,
		"refunded":       result.Refunded,
	}).Info("Event settled")

	return result, nil
}

// applyPayout writes the outcome, the fee row and the balance change for one participant
func (s *settlementService) applyPayout(ctx context.Context, event *entities.Event, payout *entities.Payout) error {
	outcome := &entities.EventOutcome{
		ParticipantID: payout.ParticipantID,
		Result:        payout.Result,
		PointsAwarded: payout.Net,
	}
	if err := s.outcomeRepo.CreateOutcome(ctx, outcome); err != nil {
		return fmt.Errorf("failed to record outcome for participant %d: %w", payout.ParticipantID, err)
	}

	if payout.Result == entities.OutcomeWin && payout.Fee > 0 {
		fee := &entities.PlatformFee{
			EventID:       event.ID,
			ParticipantID: payout.ParticipantID,
			FeeAmount:     payout.Fee,
		}
		if err := s.outcomeRepo.CreateFee(ctx, fee); err != nil {
			return fmt.Errorf("failed to record platform fee for participant %d: %w", payout.ParticipantID, err)
		}
	}

	var reason entities.PointsReason
	switch payout.Result {
	case entities.OutcomeWin:
		reason = entities.PointsReasonEventWin
	case entities.OutcomeLoss:
		reason = entities.PointsReasonEventLoss
	default:
		// Refunds release the hold without touching the balance
		return nil
	}

	metadata := map[string]any{
		"participant_id": payout.ParticipantID,
		"stake":          payout.Amount,
		"gross":          payout.Gross,
		"fee":            payout.Fee,
		"points_awarded": payout.Net,
		"event_title":    event.Title,
	}
	if _, err := utils.ApplyPointsChange(ctx, s.userRepo, s.historyRepo, s.eventPublisher,
		payout.UserID, event.ID, payout.Delta(), reason, metadata); err != nil {
		return fmt.Errorf("failed to apply payout for participant %d: %w", payout.ParticipantID, err)
	}

	return nil
}

// statusError maps a non-resolvable status to its domain error
func statusError(eventID int64, status entities.EventStatus) error {
	switch status {
	case entities.EventStatusLocked:
		return nil
	case entities.EventStatusResolved:
		return entities.ErrAlreadyResolved
	case entities.EventStatusResolving:
		return entities.ErrConcurrentResolution
	default:
		return fmt.Errorf("%w: event %d is %s", entities.ErrInvalidState, eventID, status)
	}
}
