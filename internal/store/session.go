package store

import (
	"context"
	"database/sql"
	"time"

	"fundbuero/internal/model"
)

// GetSession returns the persisted current-identity slot, or nil when
// nobody is logged in.
func GetSession(ctx context.Context, db *sql.DB) (*model.Session, error) {
	var sess *model.Session
	if err := loadCollection(ctx, db, keyCurrentIdentity, &sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveSession replaces the current-identity slot.
func SaveSession(ctx context.Context, db *sql.DB, sess model.Session) error {
	return saveCollection(ctx, db, keyCurrentIdentity, sess)
}

// ClearSession removes the current identity and its activity marker.
func ClearSession(ctx context.Context, db *sql.DB) error {
	if err := deleteCollection(ctx, db, keyCurrentIdentity); err != nil {
		return err
	}
	return deleteCollection(ctx, db, keyLastActivity)
}

// GetLastActivity returns the recorded activity timestamp, or the zero
// time when none is recorded.
func GetLastActivity(ctx context.Context, db *sql.DB) (time.Time, error) {
	var ts time.Time
	if err := loadCollection(ctx, db, keyLastActivity, &ts); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// TouchActivity records an activity timestamp.
func TouchActivity(ctx context.Context, db *sql.DB, t time.Time) error {
	return saveCollection(ctx, db, keyLastActivity, t)
}
