// Package registry implements the item lifecycle: registration, the
// status transitions with their age gates, deletion and the archive move
// that completes a handover.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fundbuero/internal/model"
)

// Sentinel errors surfaced to callers. Handlers map them onto HTTP
// statuses.
var (
	ErrNotFound    = errors.New("not found")
	ErrDenied      = errors.New("permission denied")
	ErrNotEligible = errors.New("item not eligible")
	ErrValidation  = errors.New("validation failed")
)

// Registry owns all item mutations. Age gates are evaluated against Now
// at call time, never against anything stored.
type Registry struct {
	// Now returns the current time. Swappable in tests.
	Now func() time.Time

	db *sql.DB
}

// New creates a Registry over an opened database.
func New(db *sql.DB) *Registry {
	return &Registry{Now: time.Now, db: db}
}

// ItemDraft carries the writable fields for registering and editing
// items. Identity, status and audit fields are never writable.
type ItemDraft struct {
	Name          string    `json:"name" validate:"required"`
	Description   string    `json:"description"`
	Brand         string    `json:"brand"`
	Material      string    `json:"material"`
	Color         string    `json:"color"`
	Shape         string    `json:"shape"`
	Size          string    `json:"size"`
	FoundDate     time.Time `json:"found_date" validate:"required"`
	FoundLocation string    `json:"found_location" validate:"required"`
	FinderName    string    `json:"finder_name"`
	FinderContact string    `json:"finder_contact"`
}

// checkDraft runs field validation plus the found-date sanity check.
func (r *Registry) checkDraft(draft ItemDraft, now time.Time) error {
	if err := model.Validate(draft); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if draft.FoundDate.After(now) {
		return fmt.Errorf("%w: found date is in the future", ErrValidation)
	}
	return nil
}
