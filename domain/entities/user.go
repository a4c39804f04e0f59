package entities

import (
	"errors"
	"time"
)

// User is an account holding a points balance
type User struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	Email       string    `db:"email"`
	Points      int64     `db:"points"`
	IsAdmin     bool      `db:"is_admin"`
	IsSuspended bool      `db:"is_suspended"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	AvailablePoints int64 `db:"-"` // Calculated field: points minus stakes held in unsettled events
}

// CanAfford checks if the user has sufficient available points for an amount
func (u *User) CanAfford(amount int64) bool {
	return u.AvailablePoints >= amount
}

// HeldPoints returns the points tied up in open or locked events
func (u *User) HeldPoints() int64 {
	return u.Points - u.AvailablePoints
}

// ValidateStake checks that an amount is positive and affordable
func (u *User) ValidateStake(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if u.IsSuspended {
		return ErrUserSuspended
	}
	if !u.CanAfford(amount) {
		return ErrInsufficientPoints
	}
	return nil
}
