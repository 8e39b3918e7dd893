package domain

import (
	"errors"
	"fmt"
)

// Errors shared across the fulfillment aggregates
var (
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrJobNotFound            = errors.New("job not found")
	ErrPickListNotFound       = errors.New("pick list not found")
	ErrAlreadyPicked          = errors.New("pick list has already been picked")
	ErrPickListDiscarded      = errors.New("pick list has been discarded")
	ErrLineNotFound           = errors.New("line not found in pick list")
	ErrReservationNotActive   = errors.New("reservation is not active")
	ErrLineItemsImmutable     = errors.New("line items are immutable after quote")
	ErrPickedBelowCurrent     = errors.New("picked quantity cannot decrease")
	ErrPickedExceedsRequested = errors.New("picked quantity cannot exceed requested")
)

// InvalidTransitionError is returned when a job status transition is attempted
// out of order. It names both states so callers can surface the rejection.
type InvalidTransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
