package entities

import "errors"

// Domain errors returned by the lifecycle, settlement and leaderboard services.
// Callers match them with errors.Is.
var (
	ErrEventNotFound          = errors.New("event not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidResolutionInput = errors.New("invalid resolution input")
	ErrDataIntegrity          = errors.New("participant data integrity violation")
	ErrConcurrentResolution   = errors.New("event is being resolved concurrently")
	ErrAlreadyResolved        = errors.New("event already resolved")
	ErrInvalidState           = errors.New("event is not in a valid state for this operation")
	ErrDuplicateStake         = errors.New("user already has a stake in this event")
	ErrInsufficientPoints     = errors.New("insufficient available points")
	ErrUserSuspended          = errors.New("user is suspended")
	ErrInvalidEvent           = errors.New("invalid event definition")
	ErrInvalidStake           = errors.New("invalid stake")
	ErrEventClosed            = errors.New("event is not accepting stakes")
)
