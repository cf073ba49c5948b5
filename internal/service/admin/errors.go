package admin

import (
	"errors"
)

var (
	ErrInvalidTrip     = errors.New("invalid trip")
	ErrTripNotFound    = errors.New("trip not found")
	ErrTripHasBookings = errors.New("trip is referenced by bookings")
)

type InvalidTripError struct {
	Reason string
}

func (e *InvalidTripError) Error() string {
	return "invalid trip: " + e.Reason
}

func (e *InvalidTripError) Unwrap() error {
	return ErrInvalidTrip
}
