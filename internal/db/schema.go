package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Domain records live as JSON
// documents in the collections table, one row per collection, so record
// shape changes never need schema migrations. Image bytes stay out of
// the JSON documents to keep collection rewrites small.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    ref  TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    mime TEXT NOT NULL
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
