package entities

import "time"

// OutcomeResult is the per-participant result of a resolved or canceled event
type OutcomeResult string

const (
	OutcomeWin  OutcomeResult = "win"
	OutcomeLoss OutcomeResult = "loss"
	OutcomeVoid OutcomeResult = "void"
)

// EventOutcome records what one participant received from an event
type EventOutcome struct {
	ID            int64         `db:"id"`
	ParticipantID int64         `db:"participant_id"`
	Result        OutcomeResult `db:"result"`
	PointsAwarded int64         `db:"points_awarded"`
	CreatedAt     time.Time     `db:"created_at"`
}

// PlatformFee is the fee withheld from one winner's gross payout
type PlatformFee struct {
	ID            int64     `db:"id"`
	EventID       int64     `db:"event_id"`
	ParticipantID int64     `db:"participant_id"`
	FeeAmount     int64     `db:"fee_amount"`
	CreatedAt     time.Time `db:"created_at"`
}
