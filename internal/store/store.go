package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection keys in the collections table. Every domain record lives in
// one of these JSON documents; mutations load the whole document, change
// it in memory and write it back.
const (
	keyUsers           = "users"
	keyLocations       = "locations"
	keyActiveItems     = "active_items"
	keyArchivedItems   = "archived_items"
	keyCurrentIdentity = "current_identity"
	keyLastActivity    = "last_activity"
)

// ErrEmailTaken is returned when a created or updated user would reuse a
// registered email address.
var ErrEmailTaken = errors.New("email already registered")

// querier is the subset of *sql.DB and *sql.Tx needed for collection
// access, so the archive move can run inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadCollection reads and decodes one collection. A missing key leaves
// dst untouched, which for slices means the empty collection.
func loadCollection(ctx context.Context, q querier, key string, dst any) error {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT value FROM collections WHERE key = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading collection %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding collection %s: %w", key, err)
	}
	return nil
}

// saveCollection encodes and writes one collection, replacing any
// previous value in full.
func saveCollection(ctx context.Context, q querier, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding collection %s: %w", key, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO collections (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("saving collection %s: %w", key, err)
	}
	return nil
}

// deleteCollection removes a collection key entirely.
func deleteCollection(ctx context.Context, q querier, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM collections WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting collection %s: %w", key, err)
	}
	return nil
}
