package admin

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository/memory"
)

type cacheSpy struct{ invalidated []int64 }

func (c *cacheSpy) InvalidateTrip(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}

func newService() (*Service, *memory.Store, *cacheSpy) {
	store := memory.New()
	spy := &cacheSpy{}
	return New(store, spy, slog.New(slog.NewTextHandler(io.Discard, nil))), store, spy
}

func validTrip() NewTrip {
	return NewTrip{
		Origin:         " Paris ",
		Destination:    "Rome",
		DepartDate:     time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		PriceCents:     12000,
		SeatsAvailable: 40,
	}
}

func TestCreateTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, spy := newService()

	id, err := svc.CreateTrip(ctx, validTrip())
	require.NoError(t, err)

	tr, err := store.Trips().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Paris", tr.Origin)
	assert.Equal(t, 40, tr.SeatsAvailable)
	assert.Equal(t, []int64{id}, spy.invalidated)
}

func TestCreateTripValidation(t *testing.T) {
	svc, _, spy := newService()
	before := time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC)

	for name, mutate := range map[string]func(*NewTrip){
		"no origin":      func(n *NewTrip) { n.Origin = "  " },
		"no destination": func(n *NewTrip) { n.Destination = "" },
		"no date":        func(n *NewTrip) { n.DepartDate = time.Time{} },
		"early return":   func(n *NewTrip) { n.ReturnDate = &before },
		"negative price": func(n *NewTrip) { n.PriceCents = -1 },
		"negative seats": func(n *NewTrip) { n.SeatsAvailable = -1 },
		"long origin":    func(n *NewTrip) { n.Origin = strings.Repeat("x", domain.MaxPlaceLen+1) },
		"long dest":      func(n *NewTrip) { n.Destination = strings.Repeat("x", domain.MaxPlaceLen+1) },
	} {
		t.Run(name, func(t *testing.T) {
			in := validTrip()
			mutate(&in)
			_, err := svc.CreateTrip(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidTrip)
		})
	}
	assert.Empty(t, spy.invalidated)
}

func TestCreateTripPlaceAtColumnWidth(t *testing.T) {
	svc, _, _ := newService()

	in := validTrip()
	in.Origin = strings.Repeat("ü", domain.MaxPlaceLen)
	in.Destination = strings.Repeat("ü", domain.MaxPlaceLen)
	_, err := svc.CreateTrip(context.Background(), in)
	assert.NoError(t, err)
}

func TestDeleteTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()

	free, err := svc.CreateTrip(ctx, validTrip())
	require.NoError(t, err)
	booked, err := svc.CreateTrip(ctx, validTrip())
	require.NoError(t, err)

	_, err = store.Bookings().Create(ctx, domain.Booking{
		Reference: "TRV-AAAAAAAA", UserID: 1, TripID: booked, Travellers: 1, Status: domain.StatusCancelled,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrip(ctx, free))
	assert.ErrorIs(t, svc.DeleteTrip(ctx, free), ErrTripNotFound)
	assert.ErrorIs(t, svc.DeleteTrip(ctx, booked), ErrTripHasBookings)

	_, err = store.Trips().Get(ctx, booked)
	assert.NoError(t, err)
}
