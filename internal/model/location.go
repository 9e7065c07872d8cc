package model

import "time"

// Location is a named place items get found at. Items carry the location
// by name, so deleting a location never touches existing items.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}
