package registry

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"fundbuero/internal/db"
	"fundbuero/internal/model"
	"fundbuero/internal/store"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

var (
	admin = model.Identity{UserID: "u-admin", Email: "admin@fundbuero.local", Role: model.RoleAdmin}
	clerk = model.Identity{UserID: "u-clerk", Email: "schalter@fundbuero.local", Role: model.RoleUser}
)

func newTestRegistry(t *testing.T) (*Registry, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	reg := New(database)
	reg.Now = func() time.Time { return testNow }
	return reg, database
}

// seedItem places an item directly into the active collection, aged the
// given number of days relative to the registry clock.
func seedItem(t *testing.T, database *sql.DB, id, name string, ageDays int, status string) model.Item {
	t.Helper()
	item := model.Item{
		ID:            id,
		Name:          name,
		FoundDate:     testNow.Add(-time.Duration(ageDays) * 24 * time.Hour),
		FoundLocation: "Haupteingang",
		Status:        status,
		CreatedAt:     testNow,
		CreatedBy:     "u-clerk",
	}
	ctx := context.Background()
	items, err := store.ListActiveItems(ctx, database)
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if err := store.SaveActiveItems(ctx, database, append(items, item)); err != nil {
		t.Fatalf("seeding item: %v", err)
	}
	return item
}

func validDraft() ItemDraft {
	return ItemDraft{
		Name:          "Schwarzer Regenschirm",
		Description:   "Automatik, Holzgriff",
		Color:         "schwarz",
		FoundDate:     testNow.Add(-24 * time.Hour),
		FoundLocation: "Gleis 3",
		FinderName:    "H. Meier",
	}
}

func TestRegister(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	item, err := reg.Register(ctx, clerk, validDraft())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !model.ValidItemID(item.ID) {
		t.Errorf("expected valid identifier, got %q", item.ID)
	}
	if item.Status != model.StatusActive {
		t.Errorf("expected status 'active', got %q", item.Status)
	}
	if item.CreatedBy != clerk.UserID {
		t.Errorf("expected created_by %q, got %q", clerk.UserID, item.CreatedBy)
	}
	if item.Name != "Schwarzer Regenschirm" {
		t.Errorf("expected draft fields to carry over, got %q", item.Name)
	}

	got, err := reg.Item(ctx, clerk, item.ID)
	if err != nil {
		t.Fatalf("Item after Register: %v", err)
	}
	if got.ID != item.ID {
		t.Errorf("expected persisted item, got %+v", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ItemDraft)
		wantMsg string
	}{
		{"missing name", func(d *ItemDraft) { d.Name = "" }, "name is required"},
		{"missing found date", func(d *ItemDraft) { d.FoundDate = time.Time{} }, "found_date is required"},
		{"missing location", func(d *ItemDraft) { d.FoundLocation = "" }, "found_location is required"},
		{"future found date", func(d *ItemDraft) { d.FoundDate = testNow.Add(time.Hour) }, "found date is in the future"},
	}

	for _, tt := range tests {
		draft := validDraft()
		tt.mutate(&draft)

		_, err := reg.Register(ctx, clerk, draft)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("%s: error %q missing %q", tt.name, err, tt.wantMsg)
		}
	}
}

func TestItemViewWindow(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	recent := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)
	old := seedItem(t, database, "697BFE10BBBBBBBB", "Schal", 200, model.StatusActive)
	ancient := seedItem(t, database, "697BFE10CCCCCCCC", "Hut", 400, model.StatusActive)

	// The clerk sees only the 90-day window; older items are reported
	// as missing, not as forbidden.
	if _, err := reg.Item(ctx, clerk, recent.ID); err != nil {
		t.Errorf("expected clerk to see recent item, got %v", err)
	}
	if _, err := reg.Item(ctx, clerk, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for out-of-window item, got %v", err)
	}

	// Extended access widens the window to a year.
	ext := clerk
	ext.ExtendedAccess = true
	if _, err := reg.Item(ctx, ext, old.ID); err != nil {
		t.Errorf("expected extended access to see 200-day item, got %v", err)
	}
	if _, err := reg.Item(ctx, ext, ancient.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound beyond extended window, got %v", err)
	}

	// Admins fetch any item directly.
	if _, err := reg.Item(ctx, admin, ancient.ID); err != nil {
		t.Errorf("expected admin to fetch any item, got %v", err)
	}

	if _, err := reg.Item(ctx, admin, "697BFE10DDDDDDDD"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}

func TestItemsFiltering(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)
	seedItem(t, database, "697BFE10BBBBBBBB", "Schal", 200, model.StatusActive)
	seedItem(t, database, "697BFE10CCCCCCCC", "Hut", 400, model.StatusActive)

	items, err := reg.Items(ctx, clerk, false)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].ID != "697BFE10AAAAAAAA" {
		t.Errorf("expected clerk to see 1 item, got %v", itemIDs(items))
	}

	ext := clerk
	ext.ExtendedAccess = true
	items, _ = reg.Items(ctx, ext, false)
	if len(items) != 2 {
		t.Errorf("expected extended access to see 2 items, got %v", itemIDs(items))
	}

	// The admin default window matches extended access.
	items, _ = reg.Items(ctx, admin, false)
	if len(items) != 2 {
		t.Errorf("expected admin default to see 2 items, got %v", itemIDs(items))
	}

	// The unfiltered list is admin-only.
	items, err = reg.Items(ctx, admin, true)
	if err != nil {
		t.Fatalf("Items all: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected unfiltered list of 3, got %v", itemIDs(items))
	}
	if _, err := reg.Items(ctx, clerk, true); !errors.Is(err, ErrDenied) {
		t.Errorf("expected ErrDenied for clerk unfiltered list, got %v", err)
	}
}

func TestItemsSortedByFoundDate(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	seedItem(t, database, "697BFE10AAAAAAAA", "Alt", 30, model.StatusActive)
	seedItem(t, database, "697BFE10BBBBBBBB", "Neu", 1, model.StatusActive)
	seedItem(t, database, "697BFE10CCCCCCCC", "Mittel", 15, model.StatusActive)

	items, err := reg.Items(ctx, clerk, false)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	want := []string{"Neu", "Mittel", "Alt"}
	for i, name := range want {
		if items[i].Name != name {
			t.Fatalf("expected order %v, got %v", want, itemNames(items))
		}
	}
}

func TestUpdate(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusStored)

	draft := validDraft()
	draft.Name = "Roter Regenschirm"
	draft.Brand = "Knirps"

	updated, err := reg.Update(ctx, admin, item.ID, draft)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Roter Regenschirm" || updated.Brand != "Knirps" {
		t.Errorf("expected draft fields applied, got %+v", updated)
	}
	if updated.Status != model.StatusStored {
		t.Errorf("expected status untouched by update, got %q", updated.Status)
	}
	if updated.CreatedBy != "u-clerk" {
		t.Errorf("expected audit fields untouched, got %q", updated.CreatedBy)
	}

	if _, err := reg.Update(ctx, clerk, item.ID, draft); !errors.Is(err, ErrDenied) {
		t.Errorf("expected ErrDenied for clerk update, got %v", err)
	}
	if _, err := reg.Update(ctx, admin, "697BFE10DDDDDDDD", draft); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)

	if err := reg.Delete(ctx, clerk, item.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied for clerk delete, got %v", err)
	}

	if err := reg.Delete(ctx, admin, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reg.Item(ctx, admin, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected item gone, got %v", err)
	}

	if err := reg.Delete(ctx, admin, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteRemovesImage(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)

	attached, err := reg.AttachImage(ctx, admin, item.ID, bytes.NewReader(testJPEG(64, 64)))
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if attached.ImageRef == "" {
		t.Fatal("expected image ref on item")
	}

	if err := reg.Delete(ctx, admin, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	data, _, _ := store.GetImage(ctx, database, attached.ImageRef)
	if data != nil {
		t.Error("expected image blob to be removed with the item")
	}
}

func TestDeleteArchivedRefused(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)
	if _, err := reg.HandOver(ctx, admin, item.ID, validRecipient()); err != nil {
		t.Fatalf("HandOver: %v", err)
	}

	err := reg.Delete(ctx, admin, item.ID)
	if !errors.Is(err, ErrNotEligible) {
		t.Errorf("expected ErrNotEligible for archived record, got %v", err)
	}
}

func TestAttachAndFetchImage(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)

	attached, err := reg.AttachImage(ctx, clerk, item.ID, bytes.NewReader(testJPEG(64, 64)))
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}

	data, mime, err := reg.ItemImage(ctx, clerk, item.ID)
	if err != nil {
		t.Fatalf("ItemImage: %v", err)
	}
	if len(data) == 0 || mime != "image/jpeg" {
		t.Errorf("expected processed JPEG, got %d bytes of %q", len(data), mime)
	}

	// Replacing the photo keeps the reference stable.
	replaced, err := reg.AttachImage(ctx, clerk, item.ID, bytes.NewReader(testJPEG(32, 32)))
	if err != nil {
		t.Fatalf("AttachImage replace: %v", err)
	}
	if replaced.ImageRef != attached.ImageRef {
		t.Errorf("expected stable ref, got %q then %q", attached.ImageRef, replaced.ImageRef)
	}
}

func TestItemImageMissing(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)

	if _, _, err := reg.ItemImage(ctx, clerk, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound without a photo, got %v", err)
	}
}

func TestAttachImageRejectsGarbage(t *testing.T) {
	reg, database := newTestRegistry(t)
	ctx := context.Background()

	item := seedItem(t, database, "697BFE10AAAAAAAA", "Regenschirm", 10, model.StatusActive)

	_, err := reg.AttachImage(ctx, clerk, item.ID, strings.NewReader("not an image"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for non-image payload, got %v", err)
	}
}

func testJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func itemIDs(items []model.Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func itemNames(items []model.Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}
