package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrTripNotFound          = errors.New("trip not found")
	ErrInsufficientInventory = errors.New("not enough seats available")
)

type InsufficientInventoryError struct {
	TripID    int64
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("trip %d: requested %d seats, %d available", e.TripID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}
