package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service/eventlog"
)

var ErrTripNotFound = errors.New("trip not found")

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Config struct {
	PageSize  int
	TripTTL   time.Duration
	SearchTTL time.Duration
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	events *eventlog.Service
	logger *slog.Logger
	cfg    Config
}

// New builds the façade. cache may be nil, in which case every call reads
// the store.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	events *eventlog.Service,
	logger *slog.Logger,
	cfg Config,
) *Service {
	switch {
	case cfg.PageSize <= 0:
		cfg.PageSize = DefaultPageSize
	case cfg.PageSize > MaxPageSize:
		cfg.PageSize = MaxPageSize
	}

	if cfg.TripTTL <= 0 {
		cfg.TripTTL = 60 * time.Second
	}

	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = 30 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		events: events,
		logger: logger,
		cfg:    cfg,
	}
}

// SearchTrips returns at most one page of trips matching f, earliest
// departure first. Each call reads a fresh snapshot.
//
// Parameters:
//   - ctx: request-scoped context.
//   - f: origin and destination match case-insensitive substrings, dates
//     match exactly; empty fields match everything.
//
// Returns:
//   - []domain.Trip: matching trips, never nil.
//   - error: only on store failure.
func (s *Service) SearchTrips(ctx context.Context, f domain.TripFilter) ([]domain.Trip, error) {
	const op = "service.query.SearchTrips"

	load := func(ctx context.Context) ([]domain.Trip, error) {
		return s.store.Trips().Search(ctx, f, s.cfg.PageSize)
	}

	var (
		trips []domain.Trip
		err   error
	)
	if key, ok := s.searchKey(ctx, f); ok {
		trips, err = redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.SearchTTL, load)
	} else {
		trips, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if trips == nil {
		trips = []domain.Trip{}
	}

	return trips, nil
}

// searchKey returns the cache key of a search page under the current
// generation. Without a cache, or when the generation is unreadable, the
// search goes straight to the store.
func (s *Service) searchKey(ctx context.Context, f domain.TripFilter) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	gen, err := s.cache.SearchGeneration(ctx)
	if err != nil {
		s.logger.Warn("search generation unavailable", "error", err)
		return "", false
	}

	return redisrepo.KeySearch(gen, f, s.cfg.PageSize), true
}

// GetTrip returns a single trip.
//
// Returns:
//   - error: query.ErrTripNotFound if the trip does not exist.
func (s *Service) GetTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	const op = "service.query.GetTrip"

	load := func(ctx context.Context) (domain.Trip, error) {
		tr, err := s.store.Trips().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Trip{}, ErrTripNotFound
			}
			return domain.Trip{}, err
		}
		return *tr, nil
	}

	var (
		trip domain.Trip
		err  error
	)
	if s.cache != nil {
		trip, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyTrip(id), s.cfg.TripTTL, load)
	} else {
		trip, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &trip, nil
}

// ListBookings returns every booking of userID, newest first, with trip
// fields and events (newest first) attached.
func (s *Service) ListBookings(ctx context.Context, userID int64) ([]domain.BookingDetail, error) {
	const op = "service.query.ListBookings"

	bookings, err := s.store.Bookings().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int64, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}

	events, err := s.events.ListMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.BookingDetail, len(bookings))
	for i, b := range bookings {
		evs := events[b.ID]
		if evs == nil {
			evs = []domain.BookingEvent{}
		}
		out[i] = domain.BookingDetail{BookingWithTrip: b, Events: evs}
	}

	return out, nil
}
