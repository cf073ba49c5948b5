package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripgo/internal/repository"
	"github.com/kirinyoku/tripgo/internal/repository/memory"
)

func TestDoRunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memory.New())

	var order []string
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { order = append(order, "hook") })
		order = append(order, "body")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "hook"}, order)
}

func TestDoSkipsHooksOnError(t *testing.T) {
	u := NewUoW(memory.New())

	boom := errors.New("boom")
	called := false
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { called = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestDoRetriesSerializationFailures(t *testing.T) {
	u := NewUoW(memory.New())

	attempts, hooks := 0, 0
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		attempts++
		after(func(context.Context) { hooks++ })
		if attempts < 3 {
			return fmt.Errorf("deadlock: %w", repository.ErrSerialization)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, hooks)
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	u := NewUoW(memory.New()).WithAttempts(2)

	attempts := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		attempts++
		return repository.ErrSerialization
	})
	require.ErrorIs(t, err, repository.ErrSerialization)
	assert.Equal(t, 2, attempts)
}
