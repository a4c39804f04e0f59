package entities

import (
	"errors"
	"time"
)

// PointsReason identifies why a user's balance changed
type PointsReason string

const (
	PointsReasonEventWin   PointsReason = "event_win"
	PointsReasonEventLoss  PointsReason = "event_loss"
	PointsReasonInitial    PointsReason = "initial"
	PointsReasonAdjustment PointsReason = "admin_adjustment"
)

// IsSettlement returns true for reasons written by event settlement
func (r PointsReason) IsSettlement() bool {
	return r == PointsReasonEventWin || r == PointsReasonEventLoss
}

// PointsHistory is an append-only audit row for a balance change
type PointsHistory struct {
	ID           int64          `db:"id"`
	UserID       int64          `db:"user_id"`
	PointsBefore int64          `db:"points_before"`
	PointsAfter  int64          `db:"points_after"`
	ChangeAmount int64          `db:"change_amount"`
	Reason       PointsReason   `db:"reason"`
	Metadata     map[string]any `db:"metadata"`
	EventID      *int64         `db:"event_id"`
	CreatedAt    time.Time      `db:"created_at"`
}

// Validate checks the row is internally consistent
func (h *PointsHistory) Validate() error {
	if h.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}
	if h.PointsAfter != h.PointsBefore+h.ChangeAmount {
		return errors.New("points calculation is inconsistent")
	}
	return nil
}
