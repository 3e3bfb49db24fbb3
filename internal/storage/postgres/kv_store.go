package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type kvStore struct {
	store *Store
	db    *sql.DB
}

// NewKVStore создаёт PostgreSQL-реализацию KVStore поверх таблицы kv_entries.
func NewKVStore(store *Store) domain.KVStore {
	return &kvStore{store: store, db: store.DB()}
}

func (r *kvStore) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT value
		FROM kv_entries
		WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("get kv entry %s: %w", key, err)
	}

	return value, nil
}

func (r *kvStore) Put(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("put kv entry %s: %w", key, err)
	}

	return nil
}

func (r *kvStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}

func (r *kvStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *kvStore) Close() error {
	return r.store.Close()
}

var _ domain.KVStore = (*kvStore)(nil)
