package registry

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"fundbuero/internal/imaging"
	"fundbuero/internal/model"
	"fundbuero/internal/policy"
	"fundbuero/internal/store"
)

// Register validates a draft and appends it to the active collection
// with a fresh identifier and active status.
func (r *Registry) Register(ctx context.Context, actor model.Identity, draft ItemDraft) (*model.Item, error) {
	if !policy.CanRegister(actor) {
		return nil, ErrDenied
	}
	now := r.Now()
	if err := r.checkDraft(draft, now); err != nil {
		return nil, err
	}

	id, err := model.NewItemID(now)
	if err != nil {
		return nil, err
	}
	item := model.Item{
		ID:            id,
		Name:          draft.Name,
		Description:   draft.Description,
		Brand:         draft.Brand,
		Material:      draft.Material,
		Color:         draft.Color,
		Shape:         draft.Shape,
		Size:          draft.Size,
		FoundDate:     draft.FoundDate,
		FoundLocation: draft.FoundLocation,
		FinderName:    draft.FinderName,
		FinderContact: draft.FinderContact,
		Status:        model.StatusActive,
		CreatedAt:     now,
		CreatedBy:     actor.UserID,
	}

	items, err := store.ListActiveItems(ctx, r.db)
	if err != nil {
		return nil, err
	}
	items = append(items, item)
	if err := store.SaveActiveItems(ctx, r.db, items); err != nil {
		return nil, err
	}
	return &item, nil
}

// Item returns one active-collection item. Items outside the actor's
// view window are reported as missing, so the response does not betray
// their existence; admins see every item.
func (r *Registry) Item(ctx context.Context, actor model.Identity, id string) (*model.Item, error) {
	item, err := store.GetActiveItem(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if !actor.IsAdmin() && !policy.CanView(actor, *item, r.Now()) {
		return nil, ErrNotFound
	}
	return item, nil
}

// Items returns the active-collection items inside the actor's view
// window, most recent finds first. Admins may pass all to bypass the
// window.
func (r *Registry) Items(ctx context.Context, actor model.Identity, all bool) ([]model.Item, error) {
	if all && !policy.CanViewAll(actor) {
		return nil, ErrDenied
	}
	items, err := store.ListActiveItems(ctx, r.db)
	if err != nil {
		return nil, err
	}

	now := r.Now()
	visible := make([]model.Item, 0, len(items))
	for _, item := range items {
		if all || policy.CanView(actor, item, now) {
			visible = append(visible, item)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].FoundDate.Equal(visible[j].FoundDate) {
			return visible[i].FoundDate.After(visible[j].FoundDate)
		}
		return visible[i].Name < visible[j].Name
	})
	return visible, nil
}

// Update edits the descriptive and provenance fields of an item. Status
// only ever changes through transitions.
func (r *Registry) Update(ctx context.Context, actor model.Identity, id string, draft ItemDraft) (*model.Item, error) {
	if !policy.CanEditItem(actor) {
		return nil, ErrDenied
	}
	if err := r.checkDraft(draft, r.Now()); err != nil {
		return nil, err
	}

	item, err := store.UpdateActiveItem(ctx, r.db, id, func(item *model.Item) {
		item.Name = draft.Name
		item.Description = draft.Description
		item.Brand = draft.Brand
		item.Material = draft.Material
		item.Color = draft.Color
		item.Shape = draft.Shape
		item.Size = draft.Size
		item.FoundDate = draft.FoundDate
		item.FoundLocation = draft.FoundLocation
		item.FinderName = draft.FinderName
		item.FinderContact = draft.FinderContact
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Delete hard-deletes an item from the active collection along with any
// stored photo. Archived records are permanent and explicitly refused.
func (r *Registry) Delete(ctx context.Context, actor model.Identity, id string) error {
	if !policy.CanDeleteItem(actor) {
		return ErrDenied
	}

	item, err := store.GetActiveItem(ctx, r.db, id)
	if err != nil {
		return err
	}
	if item == nil {
		archived, err := store.GetArchivedItem(ctx, r.db, id)
		if err != nil {
			return err
		}
		if archived != nil {
			return fmt.Errorf("%w: handed-over records are permanent", ErrNotEligible)
		}
		return ErrNotFound
	}

	if _, err := store.DeleteActiveItem(ctx, r.db, id); err != nil {
		return err
	}
	if item.ImageRef != "" {
		// Opportunistic cleanup; an orphaned blob is harmless.
		_ = store.DeleteImage(ctx, r.db, item.ImageRef)
	}
	return nil
}

// AttachImage processes a photo and stores it for the item, replacing
// any previous one. Allowed for everyone who can see the item.
func (r *Registry) AttachImage(ctx context.Context, actor model.Identity, id string, photo io.Reader) (*model.Item, error) {
	item, err := r.Item(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	processed, err := imaging.Process(photo)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	ref := item.ImageRef
	if ref == "" {
		ref = uuid.NewString()
	}
	if err := store.SaveImage(ctx, r.db, ref, processed.Data, processed.MIME); err != nil {
		return nil, err
	}
	if ref == item.ImageRef {
		return item, nil
	}

	updated, err := store.UpdateActiveItem(ctx, r.db, id, func(item *model.Item) {
		item.ImageRef = ref
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// ItemImage returns the stored photo for an item the actor can see, or
// ErrNotFound when the item has none.
func (r *Registry) ItemImage(ctx context.Context, actor model.Identity, id string) ([]byte, string, error) {
	item, err := r.Item(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if item.ImageRef == "" {
		return nil, "", ErrNotFound
	}
	data, mime, err := store.GetImage(ctx, r.db, item.ImageRef)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	return data, mime, nil
}
