package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv (
    store      TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (store, key)
)`

// KV is a named key/value store. Values are stored as JSON.
type KV struct {
	db   *sql.DB
	name string
}

// Name returns the store's name.
func (kv *KV) Name() string { return kv.name }

// Get decodes the value stored under key into v. It reports false, leaving
// v untouched, when the key is absent.
func (kv *KV) Get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := kv.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE store = ? AND key = ?", kv.name, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", kv.name, key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode %s/%s: %w", kv.name, key, err)
	}
	return true, nil
}

// Set stores v under key, replacing any previous value.
func (kv *KV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kv.name, key, err)
	}
	_, err = kv.db.ExecContext(ctx,
		`INSERT INTO kv (store, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (store, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		kv.name, key, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", kv.name, key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (kv *KV) Delete(ctx context.Context, key string) error {
	if _, err := kv.db.ExecContext(ctx, "DELETE FROM kv WHERE store = ? AND key = ?", kv.name, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kv.name, key, err)
	}
	return nil
}
