package redisrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock      = "LOCK"
	idemResPrefix = "RES:"
)

// IdempotencyStore remembers the response of a completed request under a
// client supplied key. A key is first taken with AcquireLock and then either
// replaced by SaveResult or dropped by Release. Results carry the fingerprint
// of the request that produced them, so a key reused for a different request
// can be told apart from a retry.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

type IdempotentResult struct {
	// Fingerprint identifies the request; it must not contain ':'.
	Fingerprint string
	Payload     string
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, res IdempotentResult) error {
	return s.rdb.Set(ctx, key, idemResPrefix+res.Fingerprint+":"+res.Payload, s.ttl).Err()
}

// GetResult reports false while the key is unused or still locked.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (IdempotentResult, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return IdempotentResult{}, false, nil
	}
	if err != nil {
		return IdempotentResult{}, false, err
	}

	rest, ok := strings.CutPrefix(v, idemResPrefix)
	if !ok {
		return IdempotentResult{}, false, nil
	}
	fp, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return IdempotentResult{}, false, nil
	}

	return IdempotentResult{Fingerprint: fp, Payload: payload}, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
