package handover

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fundbuero/internal/db"
	"fundbuero/internal/model"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
	"fundbuero/internal/store"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

var (
	admin = model.Identity{UserID: "u-admin", Email: "admin@fundbuero.local", Role: model.RoleAdmin}
	clerk = model.Identity{UserID: "u-clerk", Email: "schalter@fundbuero.local", Role: model.RoleUser}
)

func newTestEnv(t *testing.T) (*registry.Registry, *session.Manager, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	users := []model.User{
		{ID: admin.UserID, Email: admin.Email, Name: "Admin", Role: model.RoleAdmin, PasswordHash: string(hash), CreatedAt: testNow},
		{ID: clerk.UserID, Email: clerk.Email, Name: "Schalter 1", Role: model.RoleUser, PasswordHash: string(hash), CreatedAt: testNow},
	}
	if err := store.SaveUsers(context.Background(), database, users); err != nil {
		t.Fatalf("seeding users: %v", err)
	}

	reg := registry.New(database)
	reg.Now = func() time.Time { return testNow }
	return reg, session.NewManager(database), database
}

func seedItem(t *testing.T, database *sql.DB, id, status string) model.Item {
	t.Helper()
	item := model.Item{
		ID:            id,
		Name:          "Brauner Aktenkoffer",
		FoundDate:     testNow.Add(-10 * 24 * time.Hour),
		FoundLocation: "Wartehalle",
		Status:        status,
		CreatedAt:     testNow,
		CreatedBy:     clerk.UserID,
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

func validRecipient() model.Recipient {
	return model.Recipient{
		Name:        "Erika Mustermann",
		Address:     "Musterstr. 12, 50667 Köln",
		IDDocType:   model.IDDocCard,
		IDDocNumber: "L01X00T47",
	}
}

func TestBegin(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if p.Step() != StepAuthenticate {
		t.Errorf("expected step %v, got %v", StepAuthenticate, p.Step())
	}
	if got := p.Item(); got.ID != item.ID || got.Name != item.Name {
		t.Errorf("expected item snapshot, got %+v", got)
	}
	if p.Actor() != nil {
		t.Errorf("expected no actor before authentication, got %+v", p.Actor())
	}
}

func TestBeginMissingItem(t *testing.T) {
	reg, sessions, _ := newTestEnv(t)

	_, err := Begin(context.Background(), reg, sessions, clerk, "697BFE10BBBBBBBB")
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBeginSoldItem(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusSold)

	_, err := Begin(context.Background(), reg, sessions, admin, item.ID)
	if !errors.Is(err, registry.ErrNotEligible) {
		t.Errorf("expected ErrNotEligible, got %v", err)
	}
}

func TestBeginStoredNeedsAdmin(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusStored)

	if _, err := Begin(ctx, reg, sessions, clerk, item.ID); !errors.Is(err, registry.ErrDenied) {
		t.Errorf("expected ErrDenied for non-admin, got %v", err)
	}
	if _, err := Begin(ctx, reg, sessions, admin, item.ID); err != nil {
		t.Errorf("expected admin to initiate, got %v", err)
	}
}

func TestHandoverHappyPath(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Step() != StepScan {
		t.Fatalf("expected step %v after authentication, got %v", StepScan, p.Step())
	}

	// Scanner input arrives in fragments; nothing verifies until the
	// identifier is complete.
	for _, chunk := range []string{"697BFE", "10AAAA", "AA"} {
		done, err := p.Scan(ctx, chunk)
		if err != nil {
			t.Fatalf("Scan(%q): %v", chunk, err)
		}
		if done {
			t.Fatalf("Scan(%q): verified on incomplete input", chunk)
		}
	}
	done, err := p.Scan(ctx, "AA")
	if err != nil {
		t.Fatalf("final Scan: %v", err)
	}
	if !done || p.Step() != StepRecipient {
		t.Fatalf("expected step %v after full scan, got %v", StepRecipient, p.Step())
	}

	archived, err := p.Complete(ctx, validRecipient())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if p.Step() != StepDone {
		t.Errorf("expected step %v, got %v", StepDone, p.Step())
	}
	if archived.Status != model.StatusHandedOver {
		t.Errorf("expected status 'handed_over', got %q", archived.Status)
	}
	if archived.HandedOverBy != clerk.UserID {
		t.Errorf("expected handed_over_by %q, got %q", clerk.UserID, archived.HandedOverBy)
	}
	if !archived.HandedOverAt.Equal(testNow) {
		t.Errorf("expected handed_over_at %v, got %v", testNow, archived.HandedOverAt)
	}

	active, err := store.ListActiveItems(ctx, database)
	if err != nil {
		t.Fatalf("listing active items: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected item moved out of active collection, got %d items", len(active))
	}
	stored, err := store.GetArchivedItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if stored == nil || stored.Recipient.Name != "Erika Mustermann" {
		t.Errorf("expected archived record with recipient, got %+v", stored)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := p.Authenticate(ctx, clerk.Email, "nope"); !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if p.Step() != StepAuthenticate {
		t.Errorf("expected failed attempt to stay at step %v, got %v", StepAuthenticate, p.Step())
	}
	if p.Actor() != nil {
		t.Errorf("expected no actor after failed attempt, got %+v", p.Actor())
	}

	// Retry is unlimited.
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestAuthenticateSwitchesActingUser(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	if _, err := sessions.Login(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := sessions.BindToken(ctx, "jti-clerk"); err != nil {
		t.Fatalf("BindToken: %v", err)
	}

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, admin.Email, "password123"); err != nil {
		t.Fatalf("Authenticate as admin: %v", err)
	}

	actor := p.Actor()
	if actor == nil || actor.UserID != admin.UserID {
		t.Fatalf("expected admin actor, got %+v", actor)
	}
	ident, err := sessions.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if ident == nil || ident.UserID != admin.UserID {
		t.Errorf("expected session switched to admin, got %+v", ident)
	}

	// The terminal's token binding survives the switch.
	sess, err := store.GetSession(ctx, database)
	if err != nil {
		t.Fatalf("reading session: %v", err)
	}
	if sess == nil || sess.TokenJTI != "jti-clerk" {
		t.Errorf("expected token binding preserved, got %+v", sess)
	}

	if _, err := p.Scan(ctx, item.ID); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	archived, err := p.Complete(ctx, validRecipient())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if archived.HandedOverBy != admin.UserID {
		t.Errorf("expected archive stamped with switched actor %q, got %q", admin.UserID, archived.HandedOverBy)
	}
}

func TestScanMismatchRetry(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if _, err := p.Scan(ctx, "697BFE10BBBBBBBB"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if p.Step() != StepScan {
		t.Fatalf("expected mismatch to stay at step %v, got %v", StepScan, p.Step())
	}

	// The buffer cleared on mismatch, so a fresh full scan verifies.
	done, err := p.Scan(ctx, "697BFE10AAAAAAAA")
	if err != nil {
		t.Fatalf("Scan after mismatch: %v", err)
	}
	if !done {
		t.Error("expected retry scan to verify")
	}
}

func TestScanOvershoot(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	// A fragment boundary that never lands exactly on 16 characters
	// cannot silently pass.
	if _, err := p.Scan(ctx, "697BFE10AA"); err != nil {
		t.Fatalf("partial Scan: %v", err)
	}
	if _, err := p.Scan(ctx, "AAAAAAA"); !errors.Is(err, ErrMismatch) {
		t.Errorf("expected ErrMismatch on overshoot, got %v", err)
	}
	if p.Step() != StepScan {
		t.Errorf("expected overshoot to stay at step %v, got %v", StepScan, p.Step())
	}
}

func TestScanNormalizesInput(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	done, err := p.Scan(ctx, "  697bfe10aaaaaaaa\n")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !done {
		t.Error("expected lowercase padded scan to verify")
	}
}

func TestConfirm(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	// A few scanner characters may already be buffered when the operator
	// falls back to typing; Confirm discards them.
	if _, err := p.Scan(ctx, "697B"); err != nil {
		t.Fatalf("partial Scan: %v", err)
	}
	if err := p.Confirm(ctx, "697BFE10CCCCCCCC"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := p.Confirm(ctx, " 697bfe10aaaaaaaa "); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if p.Step() != StepRecipient {
		t.Errorf("expected step %v, got %v", StepRecipient, p.Step())
	}
}

func TestWrongStep(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := p.Scan(ctx, item.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Scan before authentication: expected ErrWrongStep, got %v", err)
	}
	if err := p.Confirm(ctx, item.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Confirm before authentication: expected ErrWrongStep, got %v", err)
	}
	if _, err := p.Complete(ctx, validRecipient()); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Complete before recipient step: expected ErrWrongStep, got %v", err)
	}

	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("second Authenticate: expected ErrWrongStep, got %v", err)
	}

	p.Cancel()
	if _, err := p.Scan(ctx, item.ID); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Scan after cancel: expected ErrWrongStep, got %v", err)
	}
}

func TestCancelWritesNothing(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := p.Scan(ctx, item.ID); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	p.Cancel()
	if p.Step() != StepCancelled {
		t.Fatalf("expected step %v, got %v", StepCancelled, p.Step())
	}

	active, err := store.ListActiveItems(ctx, database)
	if err != nil {
		t.Fatalf("listing active items: %v", err)
	}
	if len(active) != 1 || active[0].Status != model.StatusActive {
		t.Errorf("expected item untouched in active collection, got %+v", active)
	}
	archived, err := store.ListArchivedItems(ctx, database)
	if err != nil {
		t.Fatalf("listing archive: %v", err)
	}
	if len(archived) != 0 {
		t.Errorf("expected empty archive after cancel, got %d records", len(archived))
	}

	// Cancelling a finished protocol is a no-op.
	p.Cancel()
	if p.Step() != StepCancelled {
		t.Errorf("expected step to stay %v, got %v", StepCancelled, p.Step())
	}
}

func TestCompleteInvalidRecipient(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusActive)

	p, err := Begin(ctx, reg, sessions, clerk, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := p.Scan(ctx, item.ID); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	rec := validRecipient()
	rec.Address = ""
	if _, err := p.Complete(ctx, rec); !errors.Is(err, registry.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if p.Step() != StepRecipient {
		t.Errorf("expected rejected recipient to stay at step %v, got %v", StepRecipient, p.Step())
	}

	if _, err := p.Complete(ctx, validRecipient()); err != nil {
		t.Errorf("Complete after correction: %v", err)
	}
}

func TestCompleteStoredItemRequiresAdminActor(t *testing.T) {
	reg, sessions, database := newTestEnv(t)
	ctx := context.Background()
	item := seedItem(t, database, "697BFE10AAAAAAAA", model.StatusStored)

	p, err := Begin(ctx, reg, sessions, admin, item.ID)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// The user who authenticates becomes the one executing the handover,
	// so a stored item needs an admin here too.
	if err := p.Authenticate(ctx, clerk.Email, "password123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := p.Scan(ctx, item.ID); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if _, err := p.Complete(ctx, validRecipient()); !errors.Is(err, registry.ErrDenied) {
		t.Fatalf("expected ErrDenied for non-admin actor, got %v", err)
	}
	if p.Step() != StepRecipient {
		t.Errorf("expected denial to stay at step %v, got %v", StepRecipient, p.Step())
	}
}
