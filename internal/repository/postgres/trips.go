package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

const tripColumns = `id, origin, destination, depart_date, return_date, price_cents, seats_available, created_at, updated_at`

type TripRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TripRepo) With(db DB) *TripRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TripRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a trip and returns its ID.
func (r *TripRepo) Create(ctx context.Context, t domain.Trip) (int64, error) {
	const op = "postgresrepo.TripRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO trips(origin, destination, depart_date, return_date, price_cents, seats_available)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		t.Origin, t.Destination, t.DepartDate, t.ReturnDate, t.PriceCents, t.SeatsAvailable,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a trip by its ID.
//
// Returns:
//   - *domain.Trip: the trip when found.
//   - error: repository.ErrNotFound if the trip does not exist.
func (r *TripRepo) Get(ctx context.Context, id int64) (*domain.Trip, error) {
	const op = "postgresrepo.TripRepo.Get"

	t, err := scanTrip(r.handle().QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// GetForUpdate retrieves a trip and locks its row until the surrounding
// transaction commits or rolls back. Outside a transaction the lock is
// released immediately, so callers must use a repo bound with With(tx).
//
// Returns:
//   - *domain.Trip: the locked trip.
//   - error: repository.ErrNotFound if the trip does not exist.
func (r *TripRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Trip, error) {
	const op = "postgresrepo.TripRepo.GetForUpdate"

	t, err := scanTrip(r.handle().QueryRow(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// SetSeats overwrites the seat counter of a trip.
//
// Returns:
//   - error: repository.ErrNotFound if the trip does not exist.
//   - error: repository.ErrConstraint if seats is negative.
func (r *TripRepo) SetSeats(ctx context.Context, id int64, seats int) error {
	const op = "postgresrepo.TripRepo.SetSeats"

	tag, err := r.handle().Exec(ctx,
		`UPDATE trips SET seats_available = $2, updated_at = now() WHERE id = $1`,
		id, seats,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

// Search lists trips matching f ordered by departure.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - f: origin/destination are case-insensitive substrings, dates match exactly.
//   - limit: page size.
//
// Returns:
//   - []domain.Trip: matching trips, possibly empty.
func (r *TripRepo) Search(ctx context.Context, f domain.TripFilter, limit int) ([]domain.Trip, error) {
	const op = "postgresrepo.TripRepo.Search"

	var (
		where []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Origin != "" {
		add(`strpos(lower(origin), lower($%d)) > 0`, f.Origin)
	}
	if f.Destination != "" {
		add(`strpos(lower(destination), lower($%d)) > 0`, f.Destination)
	}
	if f.DepartDate != nil {
		add(`depart_date = $%d`, *f.DepartDate)
	}
	if f.ReturnDate != nil {
		add(`return_date = $%d`, *f.ReturnDate)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + tripColumns + ` FROM trips`)
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, ` ORDER BY depart_date, origin, destination, id LIMIT $%d`, len(args))

	rows, err := r.handle().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Delete removes a trip.
//
// Returns:
//   - error: repository.ErrNotFound if the trip does not exist.
//   - error: repository.ErrReferenced if bookings still reference the trip.
func (r *TripRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgresrepo.TripRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	if err := row.Scan(
		&t.ID,
		&t.Origin,
		&t.Destination,
		&t.DepartDate,
		&t.ReturnDate,
		&t.PriceCents,
		&t.SeatsAvailable,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
