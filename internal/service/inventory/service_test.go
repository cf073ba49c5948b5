package inventory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
	"github.com/kirinyoku/tripgo/internal/repository/memory"
	"github.com/kirinyoku/tripgo/internal/uow"
)

type recorder struct {
	mu          sync.Mutex
	invalidated []int64
	published   []int
}

func (r *recorder) InvalidateTrip(_ context.Context, tripID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, tripID)
	return nil
}

func (r *recorder) PublishTripChanged(_ context.Context, _ int64, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, seats)
	return nil
}

func newService(t *testing.T, seats int) (*Service, *memory.Store, int64, *recorder) {
	t.Helper()

	store := memory.New()
	id, err := store.Trips().Create(context.Background(), domain.Trip{
		Origin:         "Paris",
		Destination:    "Rome",
		DepartDate:     time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		PriceCents:     10000,
		SeatsAvailable: seats,
	})
	require.NoError(t, err)

	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, rec, rec, logger), store, id, rec
}

func TestReserveRelease(t *testing.T) {
	ctx := context.Background()
	svc, _, tripID, rec := newService(t, 5)

	ok, err := svc.Reserve(ctx, tripID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := svc.Availability(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err = svc.Reserve(ctx, tripID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = svc.Availability(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, svc.Release(ctx, tripID, 3))

	n, err = svc.Availability(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// the failed reservation changed nothing and announced nothing
	assert.Equal(t, []int64{tripID, tripID}, rec.invalidated)
	assert.Equal(t, []int{2, 5}, rec.published)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	for n := 1; n <= 4; n++ {
		svc, _, tripID, _ := newService(t, 4)

		ok, err := svc.Reserve(ctx, tripID, n)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, svc.Release(ctx, tripID, n))

		got, err := svc.Availability(ctx, tripID)
		require.NoError(t, err)
		assert.Equal(t, 4, got, "n=%d", n)
	}
}

func TestReserveUnknownTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, tripID, _ := newService(t, 1)

	_, err := svc.Reserve(ctx, tripID+1, 1)
	assert.ErrorIs(t, err, ErrTripNotFound)

	assert.ErrorIs(t, svc.Release(ctx, tripID+1, 1), ErrTripNotFound)

	_, err = svc.Availability(ctx, tripID+1)
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestNonPositiveCountPanics(t *testing.T) {
	svc, _, tripID, _ := newService(t, 1)

	assert.Panics(t, func() { _, _ = svc.Reserve(context.Background(), tripID, 0) })
	assert.Panics(t, func() { _ = svc.Release(context.Background(), tripID, -1) })
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	const (
		seats   = 7
		callers = 40
	)
	svc, _, tripID, _ := newService(t, seats)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := svc.Reserve(context.Background(), tripID, 1)
			if assert.NoError(t, err) && ok {
				successes.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(seats), successes.Load())

	n, err := svc.Availability(context.Background(), tripID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReserveTxRollsBackWithCaller(t *testing.T) {
	ctx := context.Background()
	svc, store, tripID, rec := newService(t, 3)

	err := uow.NewUoW(store).Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		trip, ok, err := svc.ReserveTx(ctx, tx, after, tripID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, trip.SeatsAvailable)
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	n, err := svc.Availability(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, rec.invalidated)
}
