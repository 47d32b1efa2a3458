package redisstore

import (
	"context"
	"fmt"
	"time"

	"fxconvert/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.IdempotencyStore = (*Store)(nil)

const idemPrefix = "fxconvert:idem:"

// Store reserves selection idempotency keys with SET NX and a TTL.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, idemPrefix+key, time.Now().UTC().Format(time.RFC3339), s.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %q: %w", key, err)
	}
	return ok, nil
}

// Release deletes key so the selection can be submitted again.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, idemPrefix+key).Err(); err != nil {
		return fmt.Errorf("release %q: %w", key, err)
	}
	return nil
}
