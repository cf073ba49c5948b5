package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Append inserts a booking event.
//
// Returns:
//   - int64: the event ID.
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *EventRepo) Append(ctx context.Context, e domain.BookingEvent) (int64, error) {
	const op = "postgresrepo.EventRepo.Append"

	var id int64
	err := r.handle().QueryRow(ctx,
		`INSERT INTO booking_events(booking_id, kind, note, at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		e.BookingID, string(e.Kind), e.Note, e.At,
	).Scan(&id)
	if err != nil {
		err = translateDBErr(err)
		if errors.Is(err, repository.ErrReferenced) {
			return 0, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// ListByBookings loads the events of several bookings in one round trip.
//
// Returns:
//   - map[int64][]domain.BookingEvent: events keyed by booking ID, newest first.
//     Bookings without events have no entry.
func (r *EventRepo) ListByBookings(ctx context.Context, bookingIDs []int64) (map[int64][]domain.BookingEvent, error) {
	const op = "postgresrepo.EventRepo.ListByBookings"

	out := make(map[int64][]domain.BookingEvent, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}

	rows, err := r.handle().Query(ctx,
		`SELECT id, booking_id, kind, note, at
		 FROM booking_events
		 WHERE booking_id = ANY($1)
		 ORDER BY at DESC, id DESC`,
		bookingIDs,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var (
			e    domain.BookingEvent
			kind string
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &kind, &e.Note, &e.At); err != nil {
			return nil, wrapDBErr(op, err)
		}
		e.Kind = domain.EventKind(kind)
		out[e.BookingID] = append(out[e.BookingID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
