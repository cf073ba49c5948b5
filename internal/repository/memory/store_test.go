package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedTrip(t *testing.T, s *Store, origin, dest, depart string, seats int) int64 {
	t.Helper()
	id, err := s.Trips().Create(context.Background(), domain.Trip{
		Origin:         origin,
		Destination:    dest,
		DepartDate:     date(depart),
		PriceCents:     10000,
		SeatsAvailable: seats,
	})
	require.NoError(t, err)
	return id
}

func TestRunTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	tripID := seedTrip(t, s, "Paris", "Rome", "2025-09-10", 5)

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Trips().SetSeats(ctx, tripID, 2))
		bid, err := tx.Bookings().Create(ctx, domain.Booking{
			Reference:  "TRV-AAAAAAAA",
			UserID:     1,
			TripID:     tripID,
			Travellers: 3,
			Status:     domain.StatusConfirmed,
			CreatedAt:  time.Now(),
		})
		require.NoError(t, err)
		_, err = tx.Events().Append(ctx, domain.BookingEvent{BookingID: bid, Kind: domain.EventCreated, At: time.Now()})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	tr, err := s.Trips().Get(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 5, tr.SeatsAvailable)

	exists, err := s.Bookings().ReferenceExists(ctx, "TRV-AAAAAAAA")
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := s.Bookings().ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)

	// ids handed out by the failed transaction are reused
	next := seedTrip(t, s, "Oslo", "Bergen", "2025-09-11", 1)
	assert.Equal(t, tripID+1, next)
}

func TestRunTxCancelledContext(t *testing.T) {
	s := New()
	tripID := seedTrip(t, s, "Paris", "Rome", "2025-09-10", 5)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Trips().SetSeats(ctx, tripID, 0))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	tr, err := s.Trips().Get(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 5, tr.SeatsAvailable)
}

func TestTripSearch(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedTrip(t, s, "Paris", "Rome", "2025-09-12", 5)
	seedTrip(t, s, "Paris", "Roma Termini", "2025-09-10", 5)
	seedTrip(t, s, "Lyon", "Rome", "2025-09-10", 5)

	got, err := s.Trips().Search(ctx, domain.TripFilter{Origin: "par", Destination: "ROM"}, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date("2025-09-10"), got[0].DepartDate)
	assert.Equal(t, date("2025-09-12"), got[1].DepartDate)

	d := date("2025-09-10")
	got, err = s.Trips().Search(ctx, domain.TripFilter{DepartDate: &d}, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lyon", got[0].Origin)

	got, err = s.Trips().Search(ctx, domain.TripFilter{}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	ret := date("2025-09-20")
	got, err = s.Trips().Search(ctx, domain.TripFilter{ReturnDate: &ret}, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTripConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	tripID := seedTrip(t, s, "Paris", "Rome", "2025-09-10", 1)

	assert.ErrorIs(t, s.Trips().SetSeats(ctx, tripID, -1), repository.ErrConstraint)
	assert.ErrorIs(t, s.Trips().SetSeats(ctx, tripID+100, 1), repository.ErrNotFound)

	_, err := s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-BBBBBBBB", UserID: 1, TripID: tripID, Travellers: 1, Status: domain.StatusConfirmed,
	})
	require.NoError(t, err)

	_, err = s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-BBBBBBBB", UserID: 2, TripID: tripID, Travellers: 1, Status: domain.StatusConfirmed,
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-CCCCCCCC", UserID: 2, TripID: tripID + 100, Travellers: 1, Status: domain.StatusConfirmed,
	})
	assert.ErrorIs(t, err, repository.ErrReferenced)

	assert.ErrorIs(t, s.Trips().Delete(ctx, tripID), repository.ErrReferenced)

	_, err = s.Trips().Create(ctx, domain.Trip{
		Origin: strings.Repeat("x", domain.MaxPlaceLen+1), Destination: "Rome", DepartDate: date("2025-09-10"),
	})
	assert.ErrorIs(t, err, repository.ErrConstraint)

	_, err = s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-DDDDDDDD", UserID: 2, TripID: tripID, Travellers: 1, Status: domain.StatusConfirmed,
		ContactName: strings.Repeat("x", domain.MaxContactNameLen+1),
	})
	assert.ErrorIs(t, err, repository.ErrConstraint)
}

func TestBookingsScopedByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()
	tripID := seedTrip(t, s, "Paris", "Rome", "2025-09-10", 5)

	_, err := s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-DDDDDDDD", UserID: 7, TripID: tripID, Travellers: 1, Status: domain.StatusConfirmed,
	})
	require.NoError(t, err)

	_, err = s.Bookings().GetWithTrip(ctx, "TRV-DDDDDDDD", 8)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	b, err := s.Bookings().GetWithTrip(ctx, "TRV-DDDDDDDD", 7)
	require.NoError(t, err)
	assert.Equal(t, "Paris", b.Origin)
	assert.Equal(t, "Rome", b.Destination)
}

func TestEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	tripID := seedTrip(t, s, "Paris", "Rome", "2025-09-10", 5)

	bid, err := s.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-EEEEEEEE", UserID: 1, TripID: tripID, Travellers: 1, Status: domain.StatusConfirmed,
	})
	require.NoError(t, err)

	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.Events().Append(ctx, domain.BookingEvent{BookingID: bid, Kind: domain.EventCreated, At: at})
	require.NoError(t, err)
	_, err = s.Events().Append(ctx, domain.BookingEvent{BookingID: bid, Kind: domain.EventCancelled, At: at})
	require.NoError(t, err)

	_, err = s.Events().Append(ctx, domain.BookingEvent{BookingID: bid + 1, Kind: domain.EventCreated, At: at})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	evs, err := s.Events().ListByBookings(ctx, []int64{bid, bid + 1})
	require.NoError(t, err)
	require.Len(t, evs[bid], 2)
	assert.Equal(t, domain.EventCancelled, evs[bid][0].Kind)
	assert.Equal(t, domain.EventCreated, evs[bid][1].Kind)
	assert.NotContains(t, evs, bid+1)
}
