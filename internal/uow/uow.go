package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/tripgo/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// DefaultAttempts bounds how many times a transaction aborted by a
// serialization failure or deadlock is retried.
const DefaultAttempts = 3

// UoW represents a unit of work.
type UoW struct {
	store    repository.Store
	attempts int
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store, attempts: DefaultAttempts}
}

// WithAttempts returns a copy of u retrying at most n times.
func (u *UoW) WithAttempts(n int) *UoW {
	if n < 1 {
		n = 1
	}
	return &UoW{store: u.store, attempts: n}
}

// Do runs fn inside a transaction. After a successful commit it executes all
// after-commit hooks registered by the attempt that committed. Hooks from
// aborted attempts are discarded.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	const op = "uow.UoW.Do"

	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 1; attempt <= u.attempts; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrSerialization) || ctx.Err() != nil {
			return err
		}
	}
	if err != nil {
		return fmt.Errorf("%s: retries exhausted: %w", op, err)
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
