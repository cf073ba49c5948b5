// Package eventlog is the append-only audit trail of booking transitions.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

var (
	ErrInvalidKind     = errors.New("unknown event kind")
	ErrBookingNotFound = errors.New("booking not found")
)

type Service struct {
	store repository.Store
	now   func() time.Time
}

func New(store repository.Store, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, now: now}
}

// Append records an event in a transaction of its own.
func (s *Service) Append(ctx context.Context, bookingID int64, kind domain.EventKind, note string) (*domain.BookingEvent, error) {
	return s.append(ctx, s.store.Events(), bookingID, kind, note)
}

// AppendTx records an event inside the caller's transaction.
func (s *Service) AppendTx(
	ctx context.Context,
	tx repository.Tx,
	bookingID int64,
	kind domain.EventKind,
	note string,
) (*domain.BookingEvent, error) {
	return s.append(ctx, tx.Events(), bookingID, kind, note)
}

func (s *Service) append(
	ctx context.Context,
	repo repository.EventRepo,
	bookingID int64,
	kind domain.EventKind,
	note string,
) (*domain.BookingEvent, error) {
	const op = "service.eventlog.Append"

	if !kind.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidKind, kind)
	}

	ev := domain.BookingEvent{
		BookingID: bookingID,
		Kind:      kind,
		Note:      note,
		At:        s.now(),
	}

	id, err := repo.Append(ctx, ev)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ev.ID = id

	return &ev, nil
}

// List returns the events of a booking, newest first.
func (s *Service) List(ctx context.Context, bookingID int64) ([]domain.BookingEvent, error) {
	const op = "service.eventlog.List"

	byBooking, err := s.store.Events().ListByBookings(ctx, []int64{bookingID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	evs := byBooking[bookingID]
	if evs == nil {
		evs = []domain.BookingEvent{}
	}

	return evs, nil
}

// ListMany returns the events of several bookings at once, keyed by booking id.
func (s *Service) ListMany(ctx context.Context, bookingIDs []int64) (map[int64][]domain.BookingEvent, error) {
	const op = "service.eventlog.ListMany"

	if len(bookingIDs) == 0 {
		return map[int64][]domain.BookingEvent{}, nil
	}

	byBooking, err := s.store.Events().ListByBookings(ctx, bookingIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return byBooking, nil
}
