package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

type tripRepo struct {
	exec execFunc
}

func (r *tripRepo) Create(ctx context.Context, tr domain.Trip) (int64, error) {
	const op = "memory.TripRepo.Create"

	if tr.SeatsAvailable < 0 || tr.PriceCents < 0 ||
		tooLong(tr.Origin, domain.MaxPlaceLen) || tooLong(tr.Destination, domain.MaxPlaceLen) {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrConstraint)
	}

	var id int64
	err := r.exec(ctx, func(t *txn) error {
		id = t.nextTripID()
		now := t.now()
		tr.ID = id
		tr.CreatedAt = now
		tr.UpdatedAt = now
		t.putTrip(tr)
		return nil
	})

	return id, err
}

func (r *tripRepo) Get(ctx context.Context, id int64) (*domain.Trip, error) {
	const op = "memory.TripRepo.Get"

	var out domain.Trip
	err := r.exec(ctx, func(t *txn) error {
		tr, ok := t.st.trips[id]
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		out = cloneTrip(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// GetForUpdate is Get: the transaction already holds the store exclusively.
func (r *tripRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Trip, error) {
	return r.Get(ctx, id)
}

func (r *tripRepo) SetSeats(ctx context.Context, id int64, seats int) error {
	const op = "memory.TripRepo.SetSeats"

	if seats < 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrConstraint)
	}

	return r.exec(ctx, func(t *txn) error {
		tr, ok := t.st.trips[id]
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		tr.SeatsAvailable = seats
		tr.UpdatedAt = t.now()
		t.putTrip(tr)
		return nil
	})
}

func (r *tripRepo) Search(ctx context.Context, f domain.TripFilter, limit int) ([]domain.Trip, error) {
	out := make([]domain.Trip, 0)
	err := r.exec(ctx, func(t *txn) error {
		origin := strings.ToLower(f.Origin)
		dest := strings.ToLower(f.Destination)

		for _, tr := range t.st.trips {
			if origin != "" && !strings.Contains(strings.ToLower(tr.Origin), origin) {
				continue
			}
			if dest != "" && !strings.Contains(strings.ToLower(tr.Destination), dest) {
				continue
			}
			if f.DepartDate != nil && !sameDate(tr.DepartDate, *f.DepartDate) {
				continue
			}
			if f.ReturnDate != nil && (tr.ReturnDate == nil || !sameDate(*tr.ReturnDate, *f.ReturnDate)) {
				continue
			}
			out = append(out, cloneTrip(tr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DepartDate.Equal(b.DepartDate) {
			return a.DepartDate.Before(b.DepartDate)
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if a.Destination != b.Destination {
			return a.Destination < b.Destination
		}
		return a.ID < b.ID
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *tripRepo) Delete(ctx context.Context, id int64) error {
	const op = "memory.TripRepo.Delete"

	return r.exec(ctx, func(t *txn) error {
		if _, ok := t.st.trips[id]; !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		for _, b := range t.st.bookings {
			if b.TripID == id {
				return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
			}
		}
		t.deleteTrip(id)
		return nil
	})
}

type bookingRepo struct {
	exec execFunc
}

func (r *bookingRepo) Create(ctx context.Context, b domain.Booking) (int64, error) {
	const op = "memory.BookingRepo.Create"

	if b.Travellers < 1 || b.TotalCents < 0 || !b.Status.Valid() ||
		tooLong(b.ContactName, domain.MaxContactNameLen) || tooLong(b.ContactEmail, domain.MaxContactEmailLen) {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrConstraint)
	}

	var id int64
	err := r.exec(ctx, func(t *txn) error {
		if _, ok := t.st.trips[b.TripID]; !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
		}
		if _, taken := t.st.byRef[b.Reference]; taken {
			return fmt.Errorf("%s: %w: bookings_reference_key", op, repository.ErrConflict)
		}

		id = t.nextBookingID()
		b.ID = id
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}
		t.putBooking(b)
		return nil
	})

	return id, err
}

func (r *bookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.exec(ctx, func(t *txn) error {
		_, exists = t.st.byRef[reference]
		return nil
	})
	return exists, err
}

func (r *bookingRepo) GetForUpdate(ctx context.Context, reference string, userID int64) (*domain.Booking, error) {
	const op = "memory.BookingRepo.GetForUpdate"

	var out domain.Booking
	err := r.exec(ctx, func(t *txn) error {
		b, ok := lookupOwned(t, reference, userID)
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (r *bookingRepo) GetWithTrip(ctx context.Context, reference string, userID int64) (*domain.BookingWithTrip, error) {
	const op = "memory.BookingRepo.GetWithTrip"

	var out domain.BookingWithTrip
	err := r.exec(ctx, func(t *txn) error {
		b, ok := lookupOwned(t, reference, userID)
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		out = withTrip(t, b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, at time.Time) error {
	const op = "memory.BookingRepo.UpdateStatus"

	if !status.Valid() {
		return fmt.Errorf("%s: %w", op, repository.ErrConstraint)
	}

	return r.exec(ctx, func(t *txn) error {
		b, ok := t.st.bookings[id]
		if !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		b.Status = status
		b.UpdatedAt = at
		t.putBooking(b)
		return nil
	})
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.BookingWithTrip, error) {
	out := make([]domain.BookingWithTrip, 0)
	err := r.exec(ctx, func(t *txn) error {
		for _, b := range t.st.bookings {
			if b.UserID == userID {
				out = append(out, withTrip(t, b))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	return out, nil
}

type eventRepo struct {
	exec execFunc
}

func (r *eventRepo) Append(ctx context.Context, e domain.BookingEvent) (int64, error) {
	const op = "memory.EventRepo.Append"

	if !e.Kind.Valid() {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrConstraint)
	}

	var id int64
	err := r.exec(ctx, func(t *txn) error {
		if _, ok := t.st.bookings[e.BookingID]; !ok {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		id = t.nextEventID()
		e.ID = id
		t.appendEvent(e)
		return nil
	})

	return id, err
}

func (r *eventRepo) ListByBookings(ctx context.Context, bookingIDs []int64) (map[int64][]domain.BookingEvent, error) {
	out := make(map[int64][]domain.BookingEvent, len(bookingIDs))
	err := r.exec(ctx, func(t *txn) error {
		for _, id := range bookingIDs {
			evs := t.st.events[id]
			if len(evs) == 0 {
				continue
			}
			cp := make([]domain.BookingEvent, len(evs))
			copy(cp, evs)
			sort.Slice(cp, func(i, j int) bool {
				if !cp[i].At.Equal(cp[j].At) {
					return cp[i].At.After(cp[j].At)
				}
				return cp[i].ID > cp[j].ID
			})
			out[id] = cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func lookupOwned(t *txn, reference string, userID int64) (domain.Booking, bool) {
	id, ok := t.st.byRef[reference]
	if !ok {
		return domain.Booking{}, false
	}
	b := t.st.bookings[id]
	if b.UserID != userID {
		return domain.Booking{}, false
	}
	return b, true
}

func withTrip(t *txn, b domain.Booking) domain.BookingWithTrip {
	tr := cloneTrip(t.st.trips[b.TripID])
	return domain.BookingWithTrip{
		Booking:     b,
		Origin:      tr.Origin,
		Destination: tr.Destination,
		DepartDate:  tr.DepartDate,
		ReturnDate:  tr.ReturnDate,
	}
}

func cloneTrip(tr domain.Trip) domain.Trip {
	if tr.ReturnDate != nil {
		rd := *tr.ReturnDate
		tr.ReturnDate = &rd
	}
	return tr
}

func tooLong(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
