package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tripgo/internal/service/inventory"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrTripNotFound    = inventory.ErrTripNotFound
	ErrBookingNotFound = errors.New("booking not found")
	ErrRateLimited     = errors.New("too many booking attempts")

	// ErrInsufficientInventory is matched by *inventory.InsufficientInventoryError.
	ErrInsufficientInventory = inventory.ErrInsufficientInventory

	// ErrReferenceExhausted means no unused reference was found within the
	// configured number of attempts.
	ErrReferenceExhausted = errors.New("could not allocate a unique booking reference")
)

type InvalidInputError struct {
	Field string
	Msg   string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
