package repository

import (
	"context"
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
)

// Store is the persistent record store behind the services. Repositories
// returned directly by Store run outside any transaction; use RunTx for
// atomic work.
type Store interface {
	// RunTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Trips() TripRepo
	Bookings() BookingRepo
	Events() EventRepo
}

// Tx exposes the repositories bound to a single transaction.
type Tx interface {
	Trips() TripRepo
	Bookings() BookingRepo
	Events() EventRepo
}

type TripRepo interface {
	Create(ctx context.Context, t domain.Trip) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Trip, error)
	// GetForUpdate reads a trip and holds an exclusive lock on it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Trip, error)
	SetSeats(ctx context.Context, id int64, seats int) error
	Search(ctx context.Context, f domain.TripFilter, limit int) ([]domain.Trip, error)
	// Delete fails with ErrReferenced while bookings point at the trip.
	Delete(ctx context.Context, id int64) error
}

type BookingRepo interface {
	// Create inserts b and returns its id. A duplicate reference yields ErrConflict.
	Create(ctx context.Context, b domain.Booking) (int64, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	// GetForUpdate locks the booking identified by reference and owned by userID.
	GetForUpdate(ctx context.Context, reference string, userID int64) (*domain.Booking, error)
	GetWithTrip(ctx context.Context, reference string, userID int64) (*domain.BookingWithTrip, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, at time.Time) error
	// ListByUser returns the user's bookings, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.BookingWithTrip, error)
}

type EventRepo interface {
	// Append inserts an event. A missing booking yields ErrNotFound.
	Append(ctx context.Context, e domain.BookingEvent) (int64, error)
	// ListByBookings returns events grouped by booking id, newest first.
	ListByBookings(ctx context.Context, bookingIDs []int64) (map[int64][]domain.BookingEvent, error)
}
