package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// keyJWTSecret holds the token signing secret. It shares the collections
// table but stores a plain hex string, not JSON.
const keyJWTSecret = "jwt_secret"

// GetJWTSecret retrieves the JWT secret, generating and persisting one
// on first use. Uses INSERT OR IGNORE + re-SELECT so concurrent startups
// agree on a single secret.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (key, value) VALUES (?, ?)`,
		keyJWTSecret, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	// Read back either our insert or the existing value.
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM collections WHERE key = ?`, keyJWTSecret,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt secret: %w", err)
	}

	return secret, nil
}
