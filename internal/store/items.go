package store

import (
	"context"
	"database/sql"

	"fundbuero/internal/model"
)

// ListActiveItems returns the active collection: every item still in
// custody, including stored and sold ones.
func ListActiveItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	var items []model.Item
	if err := loadCollection(ctx, db, keyActiveItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveActiveItems replaces the active collection.
func SaveActiveItems(ctx context.Context, db *sql.DB, items []model.Item) error {
	return saveCollection(ctx, db, keyActiveItems, items)
}

// GetActiveItem returns an item from the active collection by ID, or nil
// if no such item exists.
func GetActiveItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	items, err := ListActiveItems(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

// UpdateActiveItem applies fn to the stored item and writes the
// collection back. Returns the updated record, or nil if no such item
// exists.
func UpdateActiveItem(ctx context.Context, db *sql.DB, id string, fn func(*model.Item)) (*model.Item, error) {
	items, err := ListActiveItems(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		fn(&items[i])
		if err := SaveActiveItems(ctx, db, items); err != nil {
			return nil, err
		}
		item := items[i]
		return &item, nil
	}
	return nil, nil
}

// DeleteActiveItem removes an item from the active collection. Reports
// whether a record was removed.
func DeleteActiveItem(ctx context.Context, db *sql.DB, id string) (bool, error) {
	items, err := ListActiveItems(ctx, db)
	if err != nil {
		return false, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		items = append(items[:i], items[i+1:]...)
		return true, SaveActiveItems(ctx, db, items)
	}
	return false, nil
}
