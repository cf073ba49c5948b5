// Package memory is an in-process implementation of repository.Store.
//
// Transactions are fully serialized by a single mutex, which gives every
// transaction exclusive access to every row: a strictly stronger guarantee
// than the per-row locks taken by the Postgres store. Writes are recorded in
// an undo journal and reverted when the transaction fails.
//
// Repositories obtained from Store (rather than from a Tx) run each call in
// its own transaction. They must not be called from inside RunTx, since the
// store mutex is not reentrant.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the clock used for trip timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	return s.run(ctx, func(t *txn) error {
		return fn(ctx, txView{t: t})
	})
}

func (s *Store) Trips() repository.TripRepo       { return &tripRepo{exec: s.run} }
func (s *Store) Bookings() repository.BookingRepo { return &bookingRepo{exec: s.run} }
func (s *Store) Events() repository.EventRepo     { return &eventRepo{exec: s.run} }

func (s *Store) run(ctx context.Context, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{st: s.st, now: s.now}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}

	// a context that expired mid-transaction aborts it, as a store timeout would
	if err := ctx.Err(); err != nil {
		t.rollback()
		return err
	}

	return nil
}

type execFunc func(ctx context.Context, fn func(t *txn) error) error

type txView struct {
	t *txn
}

func (v txView) exec(ctx context.Context, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(v.t)
}

func (v txView) Trips() repository.TripRepo       { return &tripRepo{exec: v.exec} }
func (v txView) Bookings() repository.BookingRepo { return &bookingRepo{exec: v.exec} }
func (v txView) Events() repository.EventRepo     { return &eventRepo{exec: v.exec} }

type state struct {
	trips    map[int64]domain.Trip
	bookings map[int64]domain.Booking
	byRef    map[string]int64
	events   map[int64][]domain.BookingEvent

	lastTripID    int64
	lastBookingID int64
	lastEventID   int64
}

func newState() *state {
	return &state{
		trips:    make(map[int64]domain.Trip),
		bookings: make(map[int64]domain.Booking),
		byRef:    make(map[string]int64),
		events:   make(map[int64][]domain.BookingEvent),
	}
}

// txn applies writes to the shared state and journals their inverses.
type txn struct {
	st   *state
	now  func() time.Time
	undo []func()
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txn) nextTripID() int64 {
	t.st.lastTripID++
	t.undo = append(t.undo, func() { t.st.lastTripID-- })
	return t.st.lastTripID
}

func (t *txn) nextBookingID() int64 {
	t.st.lastBookingID++
	t.undo = append(t.undo, func() { t.st.lastBookingID-- })
	return t.st.lastBookingID
}

func (t *txn) nextEventID() int64 {
	t.st.lastEventID++
	t.undo = append(t.undo, func() { t.st.lastEventID-- })
	return t.st.lastEventID
}

func (t *txn) putTrip(tr domain.Trip) {
	prev, existed := t.st.trips[tr.ID]
	t.undo = append(t.undo, func() {
		if existed {
			t.st.trips[tr.ID] = prev
		} else {
			delete(t.st.trips, tr.ID)
		}
	})
	t.st.trips[tr.ID] = tr
}

func (t *txn) deleteTrip(id int64) {
	prev, existed := t.st.trips[id]
	if !existed {
		return
	}
	t.undo = append(t.undo, func() { t.st.trips[id] = prev })
	delete(t.st.trips, id)
}

func (t *txn) putBooking(b domain.Booking) {
	prev, existed := t.st.bookings[b.ID]
	t.undo = append(t.undo, func() {
		if existed {
			t.st.bookings[b.ID] = prev
		} else {
			delete(t.st.bookings, b.ID)
			delete(t.st.byRef, b.Reference)
		}
	})
	t.st.bookings[b.ID] = b
	t.st.byRef[b.Reference] = b.ID
}

func (t *txn) appendEvent(e domain.BookingEvent) {
	n := len(t.st.events[e.BookingID])
	t.undo = append(t.undo, func() {
		if n == 0 {
			delete(t.st.events, e.BookingID)
		} else {
			t.st.events[e.BookingID] = t.st.events[e.BookingID][:n]
		}
	})
	t.st.events[e.BookingID] = append(t.st.events[e.BookingID], e)
}
