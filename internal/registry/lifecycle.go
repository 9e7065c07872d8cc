package registry

import (
	"context"
	"fmt"

	"fundbuero/internal/model"
	"fundbuero/internal/policy"
	"fundbuero/internal/store"
)

// StoreItem moves an item from the shelf into long-term storage. Allowed
// once the item has been around for at least the storage age.
func (r *Registry) StoreItem(ctx context.Context, actor model.Identity, id string) (*model.Item, error) {
	if !policy.CanStoreItem(actor) {
		return nil, ErrDenied
	}
	return r.transition(ctx, id, func(item *model.Item) error {
		if item.Status != model.StatusActive {
			return fmt.Errorf("%w: cannot store %s item", ErrNotEligible, item.Status)
		}
		now := r.Now()
		if !item.CanStore(now) {
			return fmt.Errorf("%w: %d elapsed days, storage requires %d",
				ErrNotEligible, item.ElapsedDays(now), model.StorageAgeDays)
		}
		item.Status = model.StatusStored
		return nil
	})
}

// RestoreItem brings a stored item back to the shelf, typically when an
// owner inquiry makes it current again. No age gate applies.
func (r *Registry) RestoreItem(ctx context.Context, actor model.Identity, id string) (*model.Item, error) {
	if !policy.CanRestoreItem(actor) {
		return nil, ErrDenied
	}
	return r.transition(ctx, id, func(item *model.Item) error {
		if item.Status != model.StatusStored {
			return fmt.Errorf("%w: cannot restore %s item", ErrNotEligible, item.Status)
		}
		item.Status = model.StatusActive
		return nil
	})
}

// SellItem marks an item as sold off after its retention period. The
// record stays in the active collection as proof of disposal.
func (r *Registry) SellItem(ctx context.Context, actor model.Identity, id string) (*model.Item, error) {
	if !policy.CanSellItem(actor) {
		return nil, ErrDenied
	}
	return r.transition(ctx, id, func(item *model.Item) error {
		if item.Status != model.StatusActive && item.Status != model.StatusStored {
			return fmt.Errorf("%w: cannot sell %s item", ErrNotEligible, item.Status)
		}
		now := r.Now()
		if !item.CanSell(now) {
			return fmt.Errorf("%w: %d elapsed days, sale requires %d",
				ErrNotEligible, item.ElapsedDays(now), model.SaleAgeDays)
		}
		item.Status = model.StatusSold
		return nil
	})
}

// HandOver completes a handover: the recipient record is validated, the
// item is frozen as handed over and moved into the archive in one
// transaction. Nothing is written when any check fails.
func (r *Registry) HandOver(ctx context.Context, actor model.Identity, id string, rec model.Recipient) (*model.ArchivedItem, error) {
	if err := model.Validate(rec); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	item, err := store.GetActiveItem(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if item.Status != model.StatusActive && item.Status != model.StatusStored {
		return nil, fmt.Errorf("%w: cannot hand over %s item", ErrNotEligible, item.Status)
	}
	if !policy.CanInitiateHandover(actor, *item) {
		return nil, ErrDenied
	}

	frozen := *item
	frozen.Status = model.StatusHandedOver
	archived := model.ArchivedItem{
		Item:         frozen,
		Recipient:    rec,
		HandedOverAt: r.Now(),
		HandedOverBy: actor.UserID,
	}
	if err := store.ArchiveItem(ctx, r.db, id, archived); err != nil {
		return nil, err
	}
	return &archived, nil
}

// transition applies fn to the item and persists the result. fn sees the
// stored record and may refuse with an error, which aborts the write.
func (r *Registry) transition(ctx context.Context, id string, fn func(*model.Item) error) (*model.Item, error) {
	items, err := store.ListActiveItems(ctx, r.db)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return nil, err
		}
		if err := store.SaveActiveItems(ctx, r.db, items); err != nil {
			return nil, err
		}
		item := items[i]
		return &item, nil
	}
	return nil, ErrNotFound
}
