package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Item represents a registered lost-and-found item. Only Name, FoundDate
// and FoundLocation are mandatory; the descriptive fields exist so an
// item can be matched against an owner's description later.
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Material      string    `json:"material,omitempty"`
	Color         string    `json:"color,omitempty"`
	Shape         string    `json:"shape,omitempty"`
	Size          string    `json:"size,omitempty"`
	FoundDate     time.Time `json:"found_date"`
	FoundLocation string    `json:"found_location"`
	FinderName    string    `json:"finder_name,omitempty"`
	FinderContact string    `json:"finder_contact,omitempty"`
	ImageRef      string    `json:"image_ref,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by,omitempty"`
}

// Item statuses.
const (
	StatusActive     = "active"
	StatusStored     = "stored"
	StatusSold       = "sold"
	StatusHandedOver = "handed_over"
)

// Ageing thresholds, in elapsed days since the found date.
const (
	StorageAgeDays = 100
	SaleAgeDays    = 366
)

// itemIDPattern matches a normalized item identifier.
var itemIDPattern = regexp.MustCompile(`^[0-9A-F]{16}$`)

// NewItemID generates a 16-character item identifier: 8 hex digits of
// Unix-epoch seconds followed by 8 random hex digits, all uppercase.
// The timestamp prefix keeps identifiers roughly sortable by
// registration time.
func NewItemID(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating item id: %w", err)
	}
	return fmt.Sprintf("%08X%s", now.Unix(), strings.ToUpper(hex.EncodeToString(buf))), nil
}

// NormalizeItemID uppercases and trims identifier input so scanned and
// hand-typed codes compare equal to stored identifiers.
func NormalizeItemID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidItemID reports whether s is a well-formed normalized identifier.
func ValidItemID(s string) bool {
	return itemIDPattern.MatchString(s)
}

// ElapsedDays returns the age of the item in whole days, counting any
// started day as a full one. The value is always computed fresh from the
// found date, never cached on the record.
func (i Item) ElapsedDays(now time.Time) int {
	d := now.Sub(i.FoundDate)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// CanStore reports whether the item may move into long-term storage.
func (i Item) CanStore(now time.Time) bool {
	return i.Status == StatusActive && i.ElapsedDays(now) >= StorageAgeDays
}

// CanSell reports whether the item's retention period has run out and it
// may be sold off.
func (i Item) CanSell(now time.Time) bool {
	if i.Status != StatusActive && i.Status != StatusStored {
		return false
	}
	return i.ElapsedDays(now) >= SaleAgeDays
}
