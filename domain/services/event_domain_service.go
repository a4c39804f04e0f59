package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"predictions/domain/entities"

	"github.com/shopspring/decimal"
)

const (
	maxTitleLength  = 255
	maxOptionLength = 255
	maxOptions      = 20
)

// EventDomainService contains pure business rules for prediction events
type EventDomainService struct{}

// NewEventDomainService creates a new EventDomainService
func NewEventDomainService() *EventDomainService {
	return &EventDomainService{}
}

// ValidateEventCreation validates the parameters for a new event
func (s *EventDomainService) ValidateEventCreation(params entities.CreateEventParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return fmt.Errorf("%w: title cannot be empty", entities.ErrInvalidEvent)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title too long", entities.ErrInvalidEvent)
	}

	if len(params.Options) < 2 {
		return fmt.Errorf("%w: must have at least 2 options", entities.ErrInvalidEvent)
	}
	if len(params.Options) > maxOptions {
		return fmt.Errorf("%w: cannot have more than %d options", entities.ErrInvalidEvent, maxOptions)
	}

	seen := make(map[string]bool, len(params.Options))
	for _, opt := range params.Options {
		if strings.TrimSpace(opt.Value) == "" {
			return fmt.Errorf("%w: option value cannot be empty", entities.ErrInvalidEvent)
		}
		if len(opt.Value) > maxOptionLength || len(opt.Label) > maxOptionLength {
			return fmt.Errorf("%w: option too long", entities.ErrInvalidEvent)
		}
		if seen[opt.Value] {
			return fmt.Errorf("%w: duplicate option value %q", entities.ErrInvalidEvent, opt.Value)
		}
		seen[opt.Value] = true
	}

	if params.StartTime.IsZero() || params.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end time are required", entities.ErrInvalidEvent)
	}
	if !params.EndTime.After(params.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", entities.ErrInvalidEvent)
	}

	if params.FeeRate != nil {
		if params.FeeRate.IsNegative() || params.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: fee rate must be in [0, 1)", entities.ErrInvalidEvent)
		}
	}

	if params.MinBet <= 0 {
		return fmt.Errorf("%w: minimum bet must be positive", entities.ErrInvalidEvent)
	}
	if params.MaxBet < params.MinBet {
		return fmt.Errorf("%w: maximum bet must be at least the minimum bet", entities.ErrInvalidEvent)
	}

	return nil
}

// CanUserPlaceStake validates a stake against the event and the user
func (s *EventDomainService) CanUserPlaceStake(event *entities.Event, user *entities.User, prediction string, amount int64, now time.Time) error {
	if !event.CanAcceptStakes(now) {
		return fmt.Errorf("%w: event %d is %s", entities.ErrEventClosed, event.ID, event.Status)
	}

	if !event.HasOption(prediction) {
		return fmt.Errorf("%w: %q is not an option", entities.ErrInvalidStake, prediction)
	}

	if amount < event.MinBet || amount > event.MaxBet {
		return fmt.Errorf("%w: amount must be between %d and %d", entities.ErrInvalidStake, event.MinBet, event.MaxBet)
	}

	if err := user.ValidateStake(amount); err != nil {
		if errors.Is(err, entities.ErrUserSuspended) || errors.Is(err, entities.ErrInsufficientPoints) {
			return err
		}
		return fmt.Errorf("%w: %v", entities.ErrInvalidStake, err)
	}

	return nil
}

// CalculateOdds returns the live multiplier for every option. The multiplier is
// the total pool divided by the option pool, or zero when nobody backed the option.
func (s *EventDomainService) CalculateOdds(event *entities.Event, pools map[string]int64) []entities.OptionOdds {
	var total int64
	for _, amount := range pools {
		total += amount
	}

	odds := make([]entities.OptionOdds, 0, len(event.Options))
	for _, opt := range event.Options {
		pool := pools[opt.Value]
		multiplier := decimal.Zero
		if pool > 0 {
			multiplier = decimal.NewFromInt(total).DivRound(decimal.NewFromInt(pool), 4)
		}
		odds = append(odds, entities.OptionOdds{
			Value:      opt.Value,
			Label:      opt.Label,
			Pool:       pool,
			Multiplier: multiplier,
		})
	}
	return odds
}
