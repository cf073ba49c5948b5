package domain

import (
	"errors"
	"fmt"
)

type BookingStatus string

const (
	// StatusPending is reserved for a future two-step confirmation flow.
	// No operation currently produces it.
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition can leave s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled
}

// Transition computes the effect of moving a booking from s to next.
//
// CONFIRMED -> CANCELLED is the only transition that changes state.
// Any transition out of CANCELLED is a no-op: changed is false and err is nil.
// Everything else fails with ErrInvalidTransition.
func (s BookingStatus) Transition(next BookingStatus) (changed bool, err error) {
	if s.Terminal() {
		return false, nil
	}

	if s == StatusConfirmed && next == StatusCancelled {
		return true, nil
	}

	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}
