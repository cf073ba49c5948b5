package service

import (
	"log/slog"

	"github.com/kirinyoku/tripgo/internal/repository"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service/admin"
	"github.com/kirinyoku/tripgo/internal/service/booking"
	"github.com/kirinyoku/tripgo/internal/service/eventlog"
	"github.com/kirinyoku/tripgo/internal/service/inventory"
	"github.com/kirinyoku/tripgo/internal/service/query"
)

type Services struct {
	Inventory *inventory.Service
	Booking   *booking.Service
	Events    *eventlog.Service
	Query     *query.Service
	Admin     *admin.Service
}

type Config struct {
	Booking booking.Config
	Query   query.Config
}

// Deps are the optional collaborators. Any of them may be nil.
type Deps struct {
	Cache     *redisrepo.Cache
	PubSub    *redisrepo.TripsPubSub
	Limiter   *redisrepo.SlidingWindowLimiter
	Publisher booking.Publisher
}

func NewServices(
	store repository.Store,
	deps Deps,
	logger *slog.Logger,
	cfg Config,
) *Services {
	// typed nil pointers must not reach the services as non-nil interfaces
	var (
		cache   inventory.Cache
		pubsub  inventory.PubSub
		limiter booking.Limiter
	)
	if deps.Cache != nil {
		cache = deps.Cache
	}
	if deps.PubSub != nil {
		pubsub = deps.PubSub
	}
	if deps.Limiter != nil {
		limiter = deps.Limiter
	}

	events := eventlog.New(store, cfg.Booking.Now)
	inv := inventory.New(store, cache, pubsub, logger)

	return &Services{
		Inventory: inv,
		Booking:   booking.New(store, inv, events, limiter, deps.Publisher, logger, cfg.Booking),
		Events:    events,
		Query:     query.New(store, deps.Cache, events, logger, cfg.Query),
		Admin:     admin.New(store, cache, logger),
	}
}
