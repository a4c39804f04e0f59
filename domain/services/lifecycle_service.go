package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"predictions/config"
	"predictions/domain/entities"
	"predictions/domain/events"
	"predictions/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type lifecycleService struct {
	config          *config.Config
	rules           *EventDomainService
	eventRepo       interfaces.EventRepository
	participantRepo interfaces.ParticipantRepository
	outcomeRepo     interfaces.OutcomeRepository
	userRepo        interfaces.UserRepository
	eventPublisher  interfaces.EventPublisher
}

// NewLifecycleService creates a new event lifecycle service
func NewLifecycleService(
	eventRepo interfaces.EventRepository,
	participantRepo interfaces.ParticipantRepository,
	outcomeRepo interfaces.OutcomeRepository,
	userRepo interfaces.UserRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.LifecycleService {
	return &lifecycleService{
		config:          config.Get(),
		rules:           NewEventDomainService(),
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		outcomeRepo:     outcomeRepo,
		userRepo:        userRepo,
		eventPublisher:  eventPublisher,
	}
}

// CreateEvent validates and opens a new event
func (s *lifecycleService) CreateEvent(ctx context.Context, params entities.CreateEventParams) (*entities.Event, error) {
	params.Title = strings.TrimSpace(params.Title)
	if err := s.rules.ValidateEventCreation(params); err != nil {
		return nil, err
	}

	exists, err := s.eventRepo.ExistsByTitle(ctx, params.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to check event title: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: an event titled %q already exists", entities.ErrInvalidEvent, params.Title)
	}

	feeRate := s.config.DefaultFeeRate
	if params.FeeRate != nil {
		feeRate = *params.FeeRate
	}

	category := params.Category
	if category == "" {
		category = "general"
	}

	event := &entities.Event{
		Title:          params.Title,
		Category:       category,
		StartTime:      params.StartTime.UTC(),
		EndTime:        params.EndTime.UTC(),
		Status:         entities.EventStatusOpen,
		Options:        params.Options,
		ReferencePrice: params.ReferencePrice,
		PotEnabled:     params.PotEnabled,
		MinBet:         params.MinBet,
		MaxBet:         params.MaxBet,
		FeeRate:        feeRate,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.eventPublisher.Publish(events.EventCreatedEvent{
		EventID:  event.ID,
		Title:    event.Title,
		Category: event.Category,
	}); err != nil {
		log.WithError(err).Error("Failed to publish event created event")
	}

	log.WithFields(log.Fields{
		"event_id": event.ID,
		"title":    event.Title,
		"end_time": event.EndTime,
		"options":  len(event.Options),
	}).Info("Event created")

	return event, nil
}

// PlaceStake records a user's prediction on an open event
func (s *lifecycleService) PlaceStake(ctx context.Context, eventID, userID int64, prediction string, amount int64) (*entities.Participant, error) {
	event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrEventNotFound
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	existing, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing stake: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrDuplicateStake
	}

	if err := s.rules.CanUserPlaceStake(event, user, prediction, amount, time.Now()); err != nil {
		return nil, err
	}

	participant := &entities.Participant{
		EventID:    eventID,
		UserID:     userID,
		Prediction: prediction,
		Amount:     amount,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, fmt.Errorf("failed to create stake: %w", err)
	}

	if err := s.eventRepo.RecordStake(ctx, eventID, amount); err != nil {
		return nil, fmt.Errorf("failed to update prize pool: %w", err)
	}

	if err := s.eventPublisher.Publish(events.StakePlacedEvent{
		EventID:       eventID,
		UserID:        userID,
		ParticipantID: participant.ID,
		Prediction:    prediction,
		Amount:        amount,
	}); err != nil {
		log.WithError(err).Error("Failed to publish stake placed event")
	}

	return participant, nil
}

// GetEvent returns an event or ErrEventNotFound
func (s *lifecycleService) GetEvent(ctx context.Context, eventID int64) (*entities.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrEventNotFound
	}
	return event, nil
}

// GetOdds returns the live multiplier per option
func (s *lifecycleService) GetOdds(ctx context.Context, eventID int64) ([]entities.OptionOdds, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	pools, err := s.participantRepo.GetPoolsByOption(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get option pools: %w", err)
	}

	return s.rules.CalculateOdds(event, pools), nil
}

// LockExpiredEvents transitions OPEN events past their end time to LOCKED
func (s *lifecycleService) LockExpiredEvents(ctx context.Context) ([]*entities.Event, error) {
	locked, err := s.eventRepo.LockExpired(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired events: %w", err)
	}

	for _, event := range locked {
		if err := s.eventPublisher.Publish(events.EventStateChangeEvent{
			EventID:  event.ID,
			Title:    event.Title,
			OldState: string(entities.EventStatusOpen),
			NewState: string(entities.EventStatusLocked),
		}); err != nil {
			log.WithError(err).Error("Failed to publish event state change event")
		}
	}

	if len(locked) > 0 {
		log.WithField("count", len(locked)).Info("Locked expired events")
	}

	return locked, nil
}

// ListPendingResolution returns LOCKED events ordered by end time
func (s *lifecycleService) ListPendingResolution(ctx context.Context) ([]*entities.Event, error) {
	pending, err := s.eventRepo.ListByStatus(ctx, entities.EventStatusLocked)
	if err != nil {
		return nil, fmt.Errorf("failed to list events pending resolution: %w", err)
	}
	return pending, nil
}

// FlagStaleEvents flags LOCKED events whose end time is older than grace
func (s *lifecycleService) FlagStaleEvents(ctx context.Context, grace time.Duration) ([]*entities.Event, error) {
	flagged, err := s.eventRepo.FlagStale(ctx, time.Now().Add(-grace))
	if err != nil {
		return nil, fmt.Errorf("failed to flag stale events: %w", err)
	}

	for _, event := range flagged {
		log.WithFields(log.Fields{
			"event_id": event.ID,
			"title":    event.Title,
			"end_time": event.EndTime,
		}).Warn("Event stuck in LOCKED past grace period")

		if err := s.eventPublisher.Publish(events.EventFlaggedEvent{
			EventID:      event.ID,
			Title:        event.Title,
			EndTime:      event.EndTime.Unix(),
			Participants: event.TotalBets,
			PrizePool:    event.PrizePool,
		}); err != nil {
			log.WithError(err).Error("Failed to publish event flagged event")
		}
	}

	return flagged, nil
}

// CancelEvent cancels an OPEN or LOCKED event. Stakes were only held, so every
// participant gets a void outcome and balances are left untouched.
func (s *lifecycleService) CancelEvent(ctx context.Context, eventID int64) (*entities.CancelResult, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.Status != entities.EventStatusOpen && event.Status != entities.EventStatusLocked {
		return nil, cancelStatusError(eventID, event.Status)
	}

	canceled, err := s.eventRepo.TransitionStatus(ctx, eventID,
		[]entities.EventStatus{entities.EventStatusOpen, entities.EventStatusLocked}, entities.EventStatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	if !canceled {
		current, err := s.eventRepo.GetStatus(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read event status: %w", err)
		}
		return nil, cancelStatusError(eventID, current)
	}

	participants, err := s.participantRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	result := &entities.CancelResult{EventID: eventID}
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		if p.Settled {
			return nil, fmt.Errorf("%w: participant %d is already settled", entities.ErrDataIntegrity, p.ID)
		}
		if err := s.outcomeRepo.CreateOutcome(ctx, &entities.EventOutcome{
			ParticipantID: p.ID,
			Result:        entities.OutcomeVoid,
			PointsAwarded: p.Amount,
		}); err != nil {
			return nil, fmt.Errorf("failed to record void outcome for participant %d: %w", p.ID, err)
		}
		ids = append(ids, p.ID)
		result.Participants++
		result.Refunded += p.Amount
	}

	if len(ids) > 0 {
		if err := s.participantRepo.MarkSettled(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to mark participants settled: %w", err)
		}
	}

	if err := s.eventPublisher.Publish(events.EventStateChangeEvent{
		EventID:  eventID,
		Title:    event.Title,
		OldState: string(event.Status),
		NewState: string(entities.EventStatusCanceled),
	}); err != nil {
		log.WithError(err).Error("Failed to publish event state change event")
	}

	log.WithFields(log.Fields{
		"event_id":     eventID,
		"participants": result.Participants,
		"refunded":     result.Refunded,
	}).Info("Event canceled")

	return result, nil
}

func cancelStatusError(eventID int64, status entities.EventStatus) error {
	switch status {
	case entities.EventStatusResolving:
		return entities.ErrConcurrentResolution
	case entities.EventStatusResolved:
		return fmt.Errorf("%w: event %d is already resolved", entities.ErrInvalidState, eventID)
	default:
		return fmt.Errorf("%w: event %d is %s", entities.ErrInvalidState, eventID, status)
	}
}
