// Package inventory owns the seat counter of every trip.
//
// Every mutation locks the trip row for the rest of the surrounding
// transaction, so concurrent reservations on one trip are strictly ordered
// and the counter never drops below zero.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
	"github.com/kirinyoku/tripgo/internal/uow"
)

// Cache drops cached views of a trip.
type Cache interface {
	InvalidateTrip(ctx context.Context, tripID int64) error
}

// PubSub announces a new seat count.
type PubSub interface {
	PublishTripChanged(ctx context.Context, tripID int64, seatsAvailable int) error
}

type Service struct {
	store  repository.Store
	uow    *uow.UoW
	cache  Cache
	pubsub PubSub
	logger *slog.Logger
}

// New builds the service. cache and pubsub may be nil.
func New(store repository.Store, cache Cache, pubsub PubSub, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		cache:  cache,
		pubsub: pubsub,
		logger: logger,
	}
}

// Reserve takes count seats of a trip in a transaction of its own.
//
// Returns:
//   - bool: false when fewer than count seats are left; nothing changes then.
//   - error: inventory.ErrTripNotFound if the trip does not exist.
func (s *Service) Reserve(ctx context.Context, tripID int64, count int) (bool, error) {
	var ok bool
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		_, reserved, err := s.ReserveTx(ctx, tx, after, tripID, count)
		ok = reserved
		return err
	})

	return ok, err
}

// ReserveTx is Reserve inside the caller's transaction. The trip row stays
// locked until that transaction ends. It returns the trip as seen under the
// lock, after the decrement when the reservation succeeded.
//
// count < 1 is a programming error and panics.
func (s *Service) ReserveTx(
	ctx context.Context,
	tx repository.Tx,
	after func(uow.AfterCommit),
	tripID int64,
	count int,
) (*domain.Trip, bool, error) {
	const op = "service.inventory.ReserveTx"

	mustPositive(op, count)

	trip, err := s.lock(ctx, tx, tripID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if trip.SeatsAvailable < count {
		return trip, false, nil
	}

	trip.SeatsAvailable -= count
	if err := tx.Trips().SetSeats(ctx, tripID, trip.SeatsAvailable); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.notifyAfter(after, tripID, trip.SeatsAvailable)

	return trip, true, nil
}

// Release returns count seats to a trip in a transaction of its own.
func (s *Service) Release(ctx context.Context, tripID int64, count int) error {
	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		_, err := s.ReleaseTx(ctx, tx, after, tripID, count)
		return err
	})
}

// ReleaseTx is Release inside the caller's transaction. Matching count to an
// earlier reservation is the caller's job.
//
// count < 1 is a programming error and panics.
func (s *Service) ReleaseTx(
	ctx context.Context,
	tx repository.Tx,
	after func(uow.AfterCommit),
	tripID int64,
	count int,
) (*domain.Trip, error) {
	const op = "service.inventory.ReleaseTx"

	mustPositive(op, count)

	trip, err := s.lock(ctx, tx, tripID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	trip.SeatsAvailable += count
	if err := tx.Trips().SetSeats(ctx, tripID, trip.SeatsAvailable); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notifyAfter(after, tripID, trip.SeatsAvailable)

	return trip, nil
}

// Availability returns the committed seat count of a trip.
func (s *Service) Availability(ctx context.Context, tripID int64) (int, error) {
	const op = "service.inventory.Availability"

	trip, err := s.store.Trips().Get(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrTripNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return trip.SeatsAvailable, nil
}

func (s *Service) lock(ctx context.Context, tx repository.Tx, tripID int64) (*domain.Trip, error) {
	trip, err := tx.Trips().GetForUpdate(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

func (s *Service) notifyAfter(after func(uow.AfterCommit), tripID int64, seats int) {
	if after == nil {
		return
	}

	after(func(ctx context.Context) {
		if s.cache != nil {
			if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
				s.logger.Warn("trip cache invalidation failed", "trip_id", tripID, "error", err)
			}
		}
		if s.pubsub != nil {
			if err := s.pubsub.PublishTripChanged(ctx, tripID, seats); err != nil {
				s.logger.Warn("trip change publish failed", "trip_id", tripID, "error", err)
			}
		}
	})
}

func mustPositive(op string, count int) {
	if count < 1 {
		panic(fmt.Sprintf("%s: seat count must be positive, got %d", op, count))
	}
}
