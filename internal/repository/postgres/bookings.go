package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

const bookingColumns = `b.id, b.reference, b.user_id, b.trip_id, b.travellers, b.contact_name,
	b.contact_email, b.total_cents, b.status, b.created_at, b.updated_at`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a booking.
//
// Returns:
//   - int64: the booking ID.
//   - error: repository.ErrConflict if the reference is already taken.
//   - error: repository.ErrReferenced if the trip does not exist.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (int64, error) {
	const op = "postgresrepo.BookingRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings(reference, user_id, trip_id, travellers, contact_name,
		                      contact_email, total_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING id`,
		b.Reference, b.UserID, b.TripID, b.Travellers, b.ContactName,
		b.ContactEmail, b.TotalCents, string(b.Status), b.CreatedAt,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *BookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	const op = "postgresrepo.BookingRepo.ReferenceExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE reference = $1)`, reference,
	).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// GetForUpdate retrieves a booking owned by userID and locks its row until
// the surrounding transaction ends.
//
// Returns:
//   - error: repository.ErrNotFound if no such booking exists for userID.
func (r *BookingRepo) GetForUpdate(ctx context.Context, reference string, userID int64) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetForUpdate"

	var b domain.Booking
	if err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings b
		 WHERE b.reference = $1 AND b.user_id = $2
		 FOR UPDATE`,
		reference, userID,
	), &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// GetWithTrip retrieves a booking owned by userID joined with its trip.
//
// Returns:
//   - error: repository.ErrNotFound if no such booking exists for userID.
func (r *BookingRepo) GetWithTrip(ctx context.Context, reference string, userID int64) (*domain.BookingWithTrip, error) {
	const op = "postgresrepo.BookingRepo.GetWithTrip"

	var bt domain.BookingWithTrip
	if err := scanBookingWithTrip(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`, t.origin, t.destination, t.depart_date, t.return_date
		 FROM bookings b
		 JOIN trips t ON t.id = b.trip_id
		 WHERE b.reference = $1 AND b.user_id = $2`,
		reference, userID,
	), &bt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &bt, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, at time.Time) error {
	const op = "postgresrepo.BookingRepo.UpdateStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// ListByUser lists a user's bookings joined with their trips, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.BookingWithTrip, error) {
	const op = "postgresrepo.BookingRepo.ListByUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`, t.origin, t.destination, t.depart_date, t.return_date
		 FROM bookings b
		 JOIN trips t ON t.id = b.trip_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC, b.id DESC`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.BookingWithTrip, 0)
	for rows.Next() {
		var bt domain.BookingWithTrip
		if err := scanBookingWithTrip(rows, &bt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, bt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func bookingDest(b *domain.Booking, status *string) []any {
	return []any{
		&b.ID,
		&b.Reference,
		&b.UserID,
		&b.TripID,
		&b.Travellers,
		&b.ContactName,
		&b.ContactEmail,
		&b.TotalCents,
		status,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
}

func scanBooking(row pgx.Row, b *domain.Booking) error {
	var status string
	if err := row.Scan(bookingDest(b, &status)...); err != nil {
		return err
	}
	b.Status = domain.BookingStatus(status)
	return nil
}

func scanBookingWithTrip(row pgx.Row, bt *domain.BookingWithTrip) error {
	var status string
	dest := append(bookingDest(&bt.Booking, &status),
		&bt.Origin, &bt.Destination, &bt.DepartDate, &bt.ReturnDate,
	)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	bt.Status = domain.BookingStatus(status)
	return nil
}
