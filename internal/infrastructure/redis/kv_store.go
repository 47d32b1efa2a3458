package redisstore

import (
	"context"
	"fmt"

	"fxconvert/internal/application"

	"github.com/redis/go-redis/v9"
)

var _ application.KeyValueStore = (*KVStore)(nil)

const kvPrefix = "fxconvert:kv:"

// KVStore keeps each persisted key as a plain redis string.
type KVStore struct {
	Client *redis.Client
}

func NewKV(client *redis.Client) *KVStore { return &KVStore{Client: client} }

func (s *KVStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = kvPrefix + k
	}
	vals, err := s.Client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		switch v := v.(type) {
		case string:
			out[keys[i]] = []byte(v)
		case nil:
		default:
			return nil, fmt.Errorf("redis mget %s: unexpected %T", keys[i], v)
		}
	}
	return out, nil
}

// Set writes every entry inside one MULTI/EXEC.
func (s *KVStore) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, kvPrefix+k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *KVStore) Ping(ctx context.Context) error { return s.Client.Ping(ctx).Err() }
