package entities

import "time"

// Participant is one user's stake on one event
type Participant struct {
	ID         int64     `db:"id"`
	EventID    int64     `db:"event_id"`
	UserID     int64     `db:"user_id"`
	Prediction string    `db:"prediction"`
	Amount     int64     `db:"amount"`
	Settled    bool      `db:"settled"`
	CreatedAt  time.Time `db:"created_at"`
}

// IsWinner checks if the participant predicted the correct answer
func (p *Participant) IsWinner(correctAnswer string) bool {
	return p.Prediction == correctAnswer
}
