package store

import (
	"context"
	"database/sql"

	"fundbuero/internal/model"
)

// ListUsers returns the full users collection.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	var users []model.User
	if err := loadCollection(ctx, db, keyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveUsers replaces the users collection.
func SaveUsers(ctx context.Context, db *sql.DB, users []model.User) error {
	return saveCollection(ctx, db, keyUsers, users)
}

// GetUser returns a user by ID, or nil if no such user exists.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

// GetUserByEmail returns a user by email, compared case-insensitively,
// or nil if no such user exists.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].EmailEquals(email) {
			return &users[i], nil
		}
	}
	return nil, nil
}

// CreateUser appends a new user. Emails must be unique across the
// collection, ignoring case.
func CreateUser(ctx context.Context, db *sql.DB, user model.User) error {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].EmailEquals(user.Email) {
			return ErrEmailTaken
		}
	}
	users = append(users, user)
	return SaveUsers(ctx, db, users)
}

// UpdateUser applies fn to the stored user and writes the collection
// back. Returns the updated record, or nil if no such user exists.
func UpdateUser(ctx context.Context, db *sql.DB, id string, fn func(*model.User)) (*model.User, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		fn(&users[i])
		if err := SaveUsers(ctx, db, users); err != nil {
			return nil, err
		}
		u := users[i]
		return &u, nil
	}
	return nil, nil
}

// DeleteUser removes a user record. Reports whether a record was
// removed.
func DeleteUser(ctx context.Context, db *sql.DB, id string) (bool, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return false, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		users = append(users[:i], users[i+1:]...)
		return true, SaveUsers(ctx, db, users)
	}
	return false, nil
}
