package store

import (
	"context"
	"database/sql"
	"fmt"

	"fundbuero/internal/model"
)

// ListArchivedItems returns the archive: every handed-over item with its
// recipient record.
func ListArchivedItems(ctx context.Context, db *sql.DB) ([]model.ArchivedItem, error) {
	var items []model.ArchivedItem
	if err := loadCollection(ctx, db, keyArchivedItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetArchivedItem returns an archived record by item ID, or nil if no
// such record exists.
func GetArchivedItem(ctx context.Context, db *sql.DB, id string) (*model.ArchivedItem, error) {
	items, err := ListArchivedItems(ctx, db)
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

// ArchiveItem removes an item from the active collection and appends its
// archived record, in a single transaction. Both collections commit
// together, so an item ID is observable in exactly one of them at any
// instant.
func ArchiveItem(ctx context.Context, db *sql.DB, itemID string, archived model.ArchivedItem) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	var items []model.Item
	if err := loadCollection(ctx, tx, keyActiveItems, &items); err != nil {
		return err
	}

	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("archiving item %s: not in active collection", itemID)
	}
	items = append(items[:idx], items[idx+1:]...)

	var archive []model.ArchivedItem
	if err := loadCollection(ctx, tx, keyArchivedItems, &archive); err != nil {
		return err
	}
	archive = append(archive, archived)

	if err := saveCollection(ctx, tx, keyActiveItems, items); err != nil {
		return err
	}
	if err := saveCollection(ctx, tx, keyArchivedItems, archive); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}
	return nil
}
