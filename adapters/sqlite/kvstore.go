package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/erpkit/ports"
)

// KVStore implements ports.KVStore using SQLite.
type KVStore struct {
	db *DB
}

// NewKVStore creates a new key-value store. The kv migration must have run.
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

var _ ports.KVStore = (*KVStore)(nil)

// Get retrieves the value of a key.
func (s *KVStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set stores or updates a value.
func (s *KVStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		namespace, key, value,
	)
	return err
}

// Delete removes a key.
func (s *KVStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	return err
}

// Keys lists the keys of a namespace with the given prefix.
func (s *KVStore) Keys(ctx context.Context, namespace, prefix string) ([]string, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT key FROM kv WHERE namespace = ? AND substr(key, 1, ?) = ? ORDER BY key`,
		namespace, len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		result = append(result, key)
	}
	return result, rows.Err()
}
