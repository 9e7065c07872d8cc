package registry

import (
	"context"

	"fundbuero/internal/model"
	"fundbuero/internal/policy"
	"fundbuero/internal/store"
)

// Archive returns every handed-over record, newest handover first.
func (r *Registry) Archive(ctx context.Context, actor model.Identity) ([]model.ArchivedItem, error) {
	if !policy.CanListArchive(actor) {
		return nil, ErrDenied
	}
	records, err := store.ListArchivedItems(ctx, r.db)
	if err != nil {
		return nil, err
	}
	// Records append in handover order; reverse for newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ArchivedItem returns one handed-over record by item ID.
func (r *Registry) ArchivedItem(ctx context.Context, actor model.Identity, id string) (*model.ArchivedItem, error) {
	if !policy.CanListArchive(actor) {
		return nil, ErrDenied
	}
	record, err := store.GetArchivedItem(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}
