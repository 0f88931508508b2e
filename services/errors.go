package services

import "errors"

var (
	ErrNotFound             = errors.New("challenge not found")
	ErrAlreadyParticipating = errors.New("already participating in this challenge")
	ErrNotParticipating     = errors.New("not participating in this challenge")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthenticated      = errors.New("user context missing")
	ErrChallengeClosed      = errors.New("challenge is not active")
)

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyParticipating):
		return "already_participating"
	case errors.Is(err, ErrNotParticipating):
		return "not_participating"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrChallengeClosed):
		return "closed"
	}
	return "error"
}
