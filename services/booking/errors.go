package booking

import (
	"errors"
	"fmt"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	// ErrSeatUnavailable covers both a seat booked earlier and a seat held by
	// an attempt still in flight; either way the caller should pick other seats.
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrPersistenceError = errors.New("persistence error")
	ErrNotFound         = errors.New("booking not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// Error carries the kind of failure plus what the client needs to react to it.
// errors.Is(err, ErrSeatUnavailable) and friends match on Kind.
type Error struct {
	Kind    error
	Message string
	Seats   []int // Conflicting seats for ErrSeatUnavailable
	Err     error // Underlying cause, never shown to clients
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Seats) > 0 {
		msg += fmt.Sprintf(" %v", e.Seats)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func validationError(format string, args ...any) *Error {
	return &Error{Kind: ErrValidationFailed, Message: fmt.Sprintf(format, args...)}
}

func seatUnavailable(message string, seats []int) *Error {
	return &Error{Kind: ErrSeatUnavailable, Message: message, Seats: seats}
}

func persistenceError(message string, err error) *Error {
	return &Error{Kind: ErrPersistenceError, Message: message, Err: err}
}
