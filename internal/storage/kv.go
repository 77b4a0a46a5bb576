package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// KVStore is a string key/value table. The client-side currency cache
// keeps its state here.
type KVStore struct {
	repo *SQLiteRepository
}

func (r *SQLiteRepository) KV() *KVStore {
	return &KVStore{repo: r}
}

// GetAll returns the stored values for keys; missing keys are absent from the map.
func (s *KVStore) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.repo.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read kv: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan kv: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetAll writes all values in one transaction.
func (s *KVStore) SetAll(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	return s.repo.withTx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				k, v, now); err != nil {
				return fmt.Errorf("write kv %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	values, err := s.GetAll(ctx, key)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}
