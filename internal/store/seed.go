package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fundbuero/internal/model"
)

// Bootstrap accounts, created only when the users collection is empty.
// The passwords are fixed and well known; operators are expected to
// change them after first login.
const (
	DefaultAdminEmail    = "admin@fundbuero.local"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "Administrator"

	DefaultUserEmail    = "schalter@fundbuero.local"
	DefaultUserPassword = "schalter1"
	DefaultUserName     = "Schalter 1"
)

// SeedDefaultUsers creates the two bootstrap accounts when the users
// collection is empty. A non-empty collection is left alone, so the
// defaults never reappear once real accounts exist. Reports whether
// seeding happened.
func SeedDefaultUsers(ctx context.Context, db *sql.DB) (bool, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	now := time.Now()
	seeds := []struct {
		email, password, name, role string
	}{
		{DefaultAdminEmail, DefaultAdminPassword, DefaultAdminName, model.RoleAdmin},
		{DefaultUserEmail, DefaultUserPassword, DefaultUserName, model.RoleUser},
	}
	for _, s := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return false, fmt.Errorf("hashing seed password: %w", err)
		}
		users = append(users, model.User{
			ID:           uuid.NewString(),
			Email:        s.email,
			Name:         s.name,
			PasswordHash: string(hash),
			Role:         s.role,
			CreatedAt:    now,
		})
	}

	if err := SaveUsers(ctx, db, users); err != nil {
		return false, err
	}
	return true, nil
}
