package pg

import (
	"context"
	"fmt"

	"fxconvert/internal/application"

	"github.com/jackc/pgx/v5"
)

var _ application.KeyValueStore = (*KVStore)(nil)

type KVStore struct{ db *DB }

func NewKVStore(db *DB) *KVStore { return &KVStore{db: db} }

func (s *KVStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	const q = `SELECT key, value::text FROM kv_entries WHERE key = ANY($1)`
	rows, err := s.db.Pool.Query(ctx, q, keys)
	if err != nil {
		return nil, fmt.Errorf("pg kv get: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("pg kv scan: %w", err)
		}
		out[k] = []byte(v)
	}
	return out, rows.Err()
}

// Set upserts every entry in a single transaction.
func (s *KVStore) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	const up = `
        INSERT INTO kv_entries(key, value, updated_at)
        VALUES ($1, $2::jsonb, now())
        ON CONFLICT (key) DO UPDATE
          SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		for k, v := range values {
			if _, err := tx.Exec(ctx, up, k, string(v)); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pg kv set: %w", err)
	}
	return nil
}
