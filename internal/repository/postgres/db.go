package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/tripgo/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   *pgxpool.Pool
	txOpts pgx.TxOptions
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a Store whose transactions run at READ COMMITTED.
// Seat counters are protected by explicit row locks (SELECT ... FOR UPDATE),
// which serialize writers without relying on serializable isolation.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		txOpts: pgx.TxOptions{
			IsoLevel:   pgx.ReadCommitted,
			AccessMode: pgx.ReadWrite,
		},
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{db: tx, pool: s.pool}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+": commit", err)
	}

	return nil
}

func (s *Store) Trips() repository.TripRepo       { return &TripRepo{pool: s.pool} }
func (s *Store) Bookings() repository.BookingRepo { return &BookingRepo{pool: s.pool} }
func (s *Store) Events() repository.EventRepo     { return &EventRepo{pool: s.pool} }

type txRepos struct {
	pool *pgxpool.Pool
	db   DB
}

func (t txRepos) Trips() repository.TripRepo {
	return (&TripRepo{pool: t.pool}).With(t.db)
}

func (t txRepos) Bookings() repository.BookingRepo {
	return (&BookingRepo{pool: t.pool}).With(t.db)
}

func (t txRepos) Events() repository.EventRepo {
	return (&EventRepo{pool: t.pool}).With(t.db)
}
