package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KeyValue is the storage contract used by the toolkit service.
type KeyValue interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int64, error)
	AppendHistory(ctx context.Context, query string, limit int) error
	History(ctx context.Context) ([]string, error)
}

// Verify *DB satisfies KeyValue at compile time.
var _ KeyValue = (*DB)(nil)

// Get returns the value stored under key. An expired value is deleted and
// reported as absent.
func (db *DB) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	var expiresAt sql.NullInt64
	err := db.conn.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	if expiresAt.Valid && db.clock.Now().UnixMilli() > expiresAt.Int64 {
		if _, err := db.conn.ExecContext(ctx,
			`DELETE FROM kv WHERE key = ? AND expires_at = ?`, key, expiresAt.Int64); err != nil {
			return nil, false, fmt.Errorf("store: drop expired %q: %w", key, err)
		}
		return nil, false, nil
	}
	return json.RawMessage(value), true, nil
}

// Set stores value under key. A positive ttl makes the value expire after
// that duration; zero or negative means it never expires.
func (db *DB) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf("store: set %q: value is not valid JSON", key)
	}
	now := db.clock.Now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, key, string(value), expiresAt, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (db *DB) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at < ?`, db.clock.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: purge expired: %w", err)
	}
	return res.RowsAffected()
}
