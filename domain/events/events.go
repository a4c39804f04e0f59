package events

// EventType represents different types of domain events in the system
type EventType string

const (
	EventTypePointsChange     EventType = "points_change"
	EventTypeEventCreated     EventType = "event_created"
	EventTypeEventStateChange EventType = "event_state_change"
	EventTypeEventFlagged     EventType = "event_flagged"
	EventTypeEventResolved    EventType = "event_resolved"
	EventTypeStakePlaced      EventType = "stake_placed"
)

// Event is the base interface for all domain events
type Event interface {
	Type() EventType
}

// PointsChangeEvent represents a settlement adjustment to a user's points
type PointsChangeEvent struct {
	UserID       int64  `json:"user_id"`
	EventID      int64  `json:"event_id"`
	OldPoints    int64  `json:"old_points"`
	NewPoints    int64  `json:"new_points"`
	ChangeAmount int64  `json:"change_amount"`
	Reason       string `json:"reason"`
}

func (e PointsChangeEvent) Type() EventType {
	return EventTypePointsChange
}

// EventCreatedEvent is published when an administrator opens a new event
type EventCreatedEvent struct {
	EventID  int64  `json:"event_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (e EventCreatedEvent) Type() EventType {
	return EventTypeEventCreated
}

// EventStateChangeEvent represents an event status transition
type EventStateChangeEvent struct {
	EventID  int64  `json:"event_id"`
	Title    string `json:"title"`
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
}

func (e EventStateChangeEvent) Type() EventType {
	return EventTypeEventStateChange
}

// EventFlaggedEvent is published when a locked event outlives its grace period
type EventFlaggedEvent struct {
	EventID      int64  `json:"event_id"`
	Title        string `json:"title"`
	EndTime      int64  `json:"end_time"`
	Participants int    `json:"participants"`
	PrizePool    int64  `json:"prize_pool"`
}

func (e EventFlaggedEvent) Type() EventType {
	return EventTypeEventFlagged
}

// EventResolvedEvent carries the settlement summary of an event
type EventResolvedEvent struct {
	EventID       int64  `json:"event_id"`
	Title         string `json:"title"`
	CorrectAnswer string `json:"correct_answer"`
	Winners       int    `json:"winners"`
	TotalPaid     int64  `json:"total_paid"`
	FeeCollected  int64  `json:"fee_collected"`
	Refunded      bool   `json:"refunded"`
}

func (e EventResolvedEvent) Type() EventType {
	return EventTypeEventResolved
}

// StakePlacedEvent is published when a user stakes on an event
type StakePlacedEvent struct {
	EventID       int64  `json:"event_id"`
	UserID        int64  `json:"user_id"`
	ParticipantID int64  `json:"participant_id"`
	Prediction    string `json:"prediction"`
	Amount        int64  `json:"amount"`
}

func (e StakePlacedEvent) Type() EventType {
	return EventTypeStakePlaced
}
