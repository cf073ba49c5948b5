package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
	"github.com/kirinyoku/tripgo/internal/service/inventory"
	"github.com/kirinyoku/tripgo/internal/uow"
)

type Service struct {
	store  repository.Store
	cache  inventory.Cache
	logger *slog.Logger
	uow    *uow.UoW
}

// New builds the operator service. cache may be nil.
func New(store repository.Store, cache inventory.Cache, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		uow:    uow.NewUoW(store),
	}
}

type NewTrip struct {
	Origin         string
	Destination    string
	DepartDate     time.Time
	ReturnDate     *time.Time
	PriceCents     int64
	SeatsAvailable int
}

// CreateTrip registers a trip and returns its ID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the trip; origin and destination are required, the return date
//     may not precede departure, price and seats may not be negative.
//
// Returns:
//   - int64: the created trip ID on success.
//   - error: admin.ErrInvalidTrip if in fails validation.
func (s *Service) CreateTrip(ctx context.Context, in NewTrip) (int64, error) {
	const op = "service.admin.CreateTrip"

	in.Origin = strings.TrimSpace(in.Origin)
	in.Destination = strings.TrimSpace(in.Destination)

	if err := validateTrip(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error
		id, err = tx.Trips().Create(ctx, domain.Trip{
			Origin:         in.Origin,
			Destination:    in.Destination,
			DepartDate:     in.DepartDate,
			ReturnDate:     in.ReturnDate,
			PriceCents:     in.PriceCents,
			SeatsAvailable: in.SeatsAvailable,
		})
		if err != nil {
			if errors.Is(err, repository.ErrConstraint) {
				return &InvalidTripError{Reason: "rejected by store constraints"}
			}
			return err
		}

		s.invalidateAfter(after, id)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("trip created", "trip_id", id, "origin", in.Origin, "destination", in.Destination)

	return id, nil
}

// DeleteTrip removes a trip that no booking refers to.
//
// Returns:
//   - error: admin.ErrTripNotFound if the trip does not exist.
//   - error: admin.ErrTripHasBookings if any booking, cancelled or not,
//     refers to the trip.
func (s *Service) DeleteTrip(ctx context.Context, id int64) error {
	const op = "service.admin.DeleteTrip"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Trips().Delete(ctx, id); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return ErrTripNotFound
			case errors.Is(err, repository.ErrReferenced):
				return ErrTripHasBookings
			}
			return err
		}

		s.invalidateAfter(after, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("trip deleted", "trip_id", id)

	return nil
}

func validateTrip(in NewTrip) error {
	switch {
	case in.Origin == "":
		return &InvalidTripError{Reason: "origin is required"}
	case in.Destination == "":
		return &InvalidTripError{Reason: "destination is required"}
	case utf8.RuneCountInString(in.Origin) > domain.MaxPlaceLen:
		return &InvalidTripError{Reason: fmt.Sprintf("origin must be at most %d characters", domain.MaxPlaceLen)}
	case utf8.RuneCountInString(in.Destination) > domain.MaxPlaceLen:
		return &InvalidTripError{Reason: fmt.Sprintf("destination must be at most %d characters", domain.MaxPlaceLen)}
	case in.DepartDate.IsZero():
		return &InvalidTripError{Reason: "depart date is required"}
	case in.ReturnDate != nil && in.ReturnDate.Before(in.DepartDate):
		return &InvalidTripError{Reason: "return date precedes departure"}
	case in.PriceCents < 0:
		return &InvalidTripError{Reason: "price must not be negative"}
	case in.SeatsAvailable < 0:
		return &InvalidTripError{Reason: "seats must not be negative"}
	}
	return nil
}

func (s *Service) invalidateAfter(after func(uow.AfterCommit), tripID int64) {
	if s.cache == nil {
		return
	}

	after(func(ctx context.Context) {
		if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
			s.logger.Warn("trip cache invalidation failed", "trip_id", tripID, "error", err)
		}
	})
}
