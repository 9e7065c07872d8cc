package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveImage stores processed image bytes under an opaque reference,
// replacing any previous bytes for that reference.
func SaveImage(ctx context.Context, db *sql.DB, ref string, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO images (ref, data, mime) VALUES (?, ?, ?)
		 ON CONFLICT (ref) DO UPDATE SET data = excluded.data, mime = excluded.mime`,
		ref, data, mime,
	)
	if err != nil {
		return fmt.Errorf("saving image %s: %w", ref, err)
	}
	return nil
}

// GetImage returns stored image bytes and MIME type, or nil bytes if no
// image exists under the reference.
func GetImage(ctx context.Context, db *sql.DB, ref string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM images WHERE ref = ?`, ref,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image %s: %w", ref, err)
	}
	return data, mime, nil
}

// DeleteImage removes stored image bytes.
func DeleteImage(ctx context.Context, db *sql.DB, ref string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM images WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("deleting image %s: %w", ref, err)
	}
	return nil
}
