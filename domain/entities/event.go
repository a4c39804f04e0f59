package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the canonical lifecycle state of an event
type EventStatus string

const (
	EventStatusOpen      EventStatus = "OPEN"
	EventStatusLocked    EventStatus = "LOCKED"
	EventStatusResolving EventStatus = "RESOLVING"
	EventStatusResolved  EventStatus = "RESOLVED"
	EventStatusCanceled  EventStatus = "CANCELED"
)

// IsTerminal reports whether no further transitions are possible
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusResolved || s == EventStatusCanceled
}

// Derived read-only resolution status kept for legacy readers
const (
	ResolutionStatusPending  = "pending"
	ResolutionStatusResolved = "resolved"
)

// Answers derived from a final price when no explicit answer is supplied
const (
	AnswerUp   = "up"
	AnswerDown = "down"
)

// EventOption is one selectable answer of an event
type EventOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Event is a prediction question users stake points on
type Event struct {
	ID               int64            `db:"id"`
	Title            string           `db:"title"`
	Category         string           `db:"category"`
	StartTime        time.Time        `db:"start_time"`
	EndTime          time.Time        `db:"end_time"`
	Status           EventStatus      `db:"status"`
	ResolutionStatus string           `db:"resolution_status"`
	Options          []EventOption    `db:"options"`
	CorrectAnswer    *string          `db:"correct_answer"`
	ReferencePrice   *decimal.Decimal `db:"reference_price"`
	FinalPrice       *decimal.Decimal `db:"final_price"`
	PotEnabled       bool             `db:"pot_enabled"`
	MinBet           int64            `db:"min_bet"`
	MaxBet           int64            `db:"max_bet"`
	FeeRate          decimal.Decimal  `db:"fee_rate"`
	PlatformFee      int64            `db:"platform_fee"`
	PrizePool        int64            `db:"prize_pool"`
	TotalBets        int              `db:"total_bets"`
	FlaggedAt        *time.Time       `db:"flagged_at"`
	ResolvedAt       *time.Time       `db:"resolved_at"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

// IsOpen checks if the event is in the OPEN state
func (e *Event) IsOpen() bool {
	return e.Status == EventStatusOpen
}

// IsLocked checks if the event is awaiting resolution
func (e *Event) IsLocked() bool {
	return e.Status == EventStatusLocked
}

// IsResolved checks if the event has been settled
func (e *Event) IsResolved() bool {
	return e.Status == EventStatusResolved
}

// CanAcceptStakes checks if stakes may still be placed at the given time
func (e *Event) CanAcceptStakes(now time.Time) bool {
	return e.IsOpen() && now.Before(e.EndTime)
}

// HasOption reports whether value matches one of the event's option values
func (e *Event) HasOption(value string) bool {
	for _, opt := range e.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// OptionValues returns the option values in declaration order
func (e *Event) OptionValues() []string {
	values := make([]string, len(e.Options))
	for i, opt := range e.Options {
		values[i] = opt.Value
	}
	return values
}

// IsStale reports whether a locked event has waited longer than grace past its end time
func (e *Event) IsStale(now time.Time, grace time.Duration) bool {
	return e.IsLocked() && e.EndTime.Before(now.Add(-grace))
}

// CreateEventParams holds the fields an administrator supplies for a new event
type CreateEventParams struct {
	Title          string
	Category       string
	StartTime      time.Time
	EndTime        time.Time
	Options        []EventOption
	ReferencePrice *decimal.Decimal
	PotEnabled     bool
	MinBet         int64
	MaxBet         int64
	FeeRate        *decimal.Decimal
}

// OptionOdds is the live payout multiplier for a single option
type OptionOdds struct {
	Value      string          `json:"value"`
	Label      string          `json:"label"`
	Pool       int64           `json:"pool"`
	Multiplier decimal.Decimal `json:"multiplier"`
}
