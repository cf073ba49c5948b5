package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/tripgo/internal/config"
	"github.com/kirinyoku/tripgo/internal/postgres"
	"github.com/kirinyoku/tripgo/internal/queue"
	"github.com/kirinyoku/tripgo/internal/redis"
	"github.com/kirinyoku/tripgo/internal/repository"
	"github.com/kirinyoku/tripgo/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/tripgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service"
	"github.com/kirinyoku/tripgo/internal/service/booking"
	"github.com/kirinyoku/tripgo/internal/service/query"
	httpgin "github.com/kirinyoku/tripgo/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	pubsub    *redisrepo.TripsPubSub
	publisher *queue.Publisher
	closers   []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		deps service.Deps
		idem httpgin.IdempotencyStore
	)

	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { closeRedis(rdb, logger) })

		a.pubsub = redisrepo.NewTripsPubSub(rdb)
		deps.Cache = redisrepo.NewCache(rdb)
		deps.PubSub = a.pubsub
		deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
	} else {
		logger.Warn("redis disabled: no cache, rate limiting or idempotency keys")
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.publisher = pub
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("rabbitmq close", "error", err)
			}
		})
		deps.Publisher = pub
	}

	services := service.NewServices(store, deps, logger, service.Config{
		Booking: booking.Config{MaxTravellers: cfg.Booking.MaxTravellers},
		Query: query.Config{
			PageSize:  cfg.Query.PageSize,
			TripTTL:   cfg.Query.TripTTL,
			SearchTTL: cfg.Query.SearchTTL,
		},
	})

	auth := httpgin.NewAuthenticator(cfg.Auth.JWTSecret)

	router := httpgin.NewRouter(services, idem, auth, logger, httpgin.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Store.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory store: data is lost on restart")
		return memory.New(), nil
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:              a.cfg.Postgres.DSN(),
		MaxConns:         a.cfg.Postgres.MaxConns,
		StatementTimeout: a.cfg.Postgres.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := postgres.Migrate(ctx, pool, a.logger); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return postgresrepo.NewStore(pool), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Seat changes
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, msg redisrepo.TripChanged) {
				a.logger.Debug("trip changed", "trip_id", msg.TripID, "seats_available", msg.SeatsAvailable)
			})
			if err != nil && gCtx.Err() == nil {
				a.logger.Warn("trip change subscription stopped", "error", err)
			}
			return nil
		})
	}

	// Booking messages
	if a.publisher != nil && a.cfg.RabbitMQ.Consume {
		g.Go(func() error {
			return queue.Consume(gCtx, a.cfg.RabbitMQ.URL, a.logger, func(ctx context.Context, msg queue.BookingMessage) error {
				a.logger.Info("booking message",
					"type", msg.Type,
					"reference", msg.Reference,
					"trip_id", msg.TripID,
					"travellers", msg.Travellers,
				)
				return nil
			})
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()
	a.Close()

	return err
}

// Close releases connections in reverse order of opening. It is safe to
// call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeRedis(rdb *goredis.Client, logger *slog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("redis close", "error", err)
	}
}
