package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// HistoryKey is the key under which recent searches are kept.
const HistoryKey = "search_history"

// DefaultHistoryLimit bounds the stored search history.
const DefaultHistoryLimit = 50

// AppendHistory prepends query to the search history and keeps at most limit
// entries, newest first.
func (db *DB) AppendHistory(ctx context.Context, query string, limit int) error {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var raw string
	history := []string{}
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, HistoryKey).Scan(&raw)
	if err == nil {
		if jsonErr := json.Unmarshal([]byte(raw), &history); jsonErr != nil {
			// A corrupt blob is replaced rather than failing every search.
			history = []string{}
		}
	}

	history = append([]string{query}, history...)
	if len(history) > limit {
		history = history[:limit]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("store: encode history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at, updated_at)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, HistoryKey, string(data), db.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: write history: %w", err)
	}
	return tx.Commit()
}

// History returns the stored searches, newest first.
func (db *DB) History(ctx context.Context) ([]string, error) {
	raw, ok, err := db.Get(ctx, HistoryKey)
	if err != nil {
		return nil, err
	}
	history := []string{}
	if !ok {
		return history, nil
	}
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("store: decode history: %w", err)
	}
	return history, nil
}
