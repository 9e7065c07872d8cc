package store

import (
	"context"
	"database/sql"

	"fundbuero/internal/model"
)

// ListLocations returns the full locations collection.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	var locations []model.Location
	if err := loadCollection(ctx, db, keyLocations, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// SaveLocations replaces the locations collection.
func SaveLocations(ctx context.Context, db *sql.DB, locations []model.Location) error {
	return saveCollection(ctx, db, keyLocations, locations)
}

// GetLocation returns a location by ID, or nil if no such location
// exists.
func GetLocation(ctx context.Context, db *sql.DB, id string) (*model.Location, error) {
	locations, err := ListLocations(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		if locations[i].ID == id {
			return &locations[i], nil
		}
	}
	return nil, nil
}

// CreateLocation appends a new location.
func CreateLocation(ctx context.Context, db *sql.DB, location model.Location) error {
	locations, err := ListLocations(ctx, db)
	if err != nil {
		return err
	}
	locations = append(locations, location)
	return SaveLocations(ctx, db, locations)
}

// UpdateLocation applies fn to the stored location and writes the
// collection back. Returns the updated record, or nil if no such
// location exists.
func UpdateLocation(ctx context.Context, db *sql.DB, id string, fn func(*model.Location)) (*model.Location, error) {
	locations, err := ListLocations(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		if locations[i].ID != id {
			continue
		}
		fn(&locations[i])
		if err := SaveLocations(ctx, db, locations); err != nil {
			return nil, err
		}
		l := locations[i]
		return &l, nil
	}
	return nil, nil
}

// DeleteLocation removes a location record. Items keep the location name
// they were registered with. Reports whether a record was removed.
func DeleteLocation(ctx context.Context, db *sql.DB, id string) (bool, error) {
	locations, err := ListLocations(ctx, db)
	if err != nil {
		return false, err
	}
	for i := range locations {
		if locations[i].ID != id {
			continue
		}
		locations = append(locations[:i], locations[i+1:]...)
		return true, SaveLocations(ctx, db, locations)
	}
	return false, nil
}
