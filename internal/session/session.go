// Package session owns the single "who is acting now" slot of the
// terminal: login, logout, mid-handover identity switches and the idle
// timeout. The slot is persisted, so a restart resumes the session if
// the idle window has not run out in the meantime.
package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fundbuero/internal/model"
	"fundbuero/internal/store"
)

// Idle policy defaults.
const (
	DefaultIdleWindow    = 120 * time.Second
	DefaultCheckInterval = 10 * time.Second
)

// ErrInvalidCredentials is returned for every failed credential check.
// It deliberately does not say whether the email or the password was
// wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrExpired is returned when the session slot has idled out.
var ErrExpired = errors.New("session expired")

// ErrNoSession is returned when no identity is logged in, or when a
// token from an earlier login presents itself after the slot moved on.
var ErrNoSession = errors.New("no active session")

// Manager serializes all slot access. Methods take the lock, so a
// watchdog tick and a request never interleave their read-modify-write
// cycles.
type Manager struct {
	IdleWindow    time.Duration
	CheckInterval time.Duration

	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewManager creates a Manager with the default idle policy.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		IdleWindow:    DefaultIdleWindow,
		CheckInterval: DefaultCheckInterval,
		db:            db,
		now:           time.Now,
	}
}

// Login verifies credentials and makes the matched user the acting
// identity, replacing any previous session. The activity clock starts
// now.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.activate(ctx, user, "")
}

// BindToken records the JTI of the token minted at login, so only that
// token's requests act on this session. Tokens from earlier logins stop
// working the moment a new one is bound.
func (m *Manager) BindToken(ctx context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNoSession
	}
	sess.TokenJTI = jti
	return store.SaveSession(ctx, m.db, *sess)
}

// Switch verifies credentials and switches the acting identity without
// disturbing the terminal's token binding. Used when a different user
// authenticates during a handover.
func (m *Manager) Switch(ctx context.Context, email, password string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	jti := ""
	if sess, err := store.GetSession(ctx, m.db); err != nil {
		return nil, err
	} else if sess != nil {
		jti = sess.TokenJTI
	}
	return m.activate(ctx, user, jti)
}

// Current resolves the acting identity, re-reading the user record so
// role and access changes apply immediately. Returns nil when nobody is
// logged in or the slot references a deleted user.
func (m *Manager) Current(ctx context.Context) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolve(ctx)
}

// Authenticate validates a request against the slot: the presented JTI
// must be the bound one and the idle window must not have run out. On
// success the activity clock refreshes and the acting identity is
// returned. An expired slot is cleared before reporting ErrExpired.
func (m *Manager) Authenticate(ctx context.Context, jti string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	if sess.TokenJTI != "" && sess.TokenJTI != jti {
		return nil, ErrNoSession
	}

	last, err := store.GetLastActivity(ctx, m.db)
	if err != nil {
		return nil, err
	}
	if m.idledOut(last) {
		if err := store.ClearSession(ctx, m.db); err != nil {
			return nil, err
		}
		slog.Warn("session expired", "email", sess.Email, "idle", m.IdleWindow)
		return nil, ErrExpired
	}

	if err := store.TouchActivity(ctx, m.db, m.now()); err != nil {
		return nil, err
	}
	ident, err := m.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, ErrNoSession
	}
	return ident, nil
}

// RecordActivity refreshes the activity clock for the current session.
// A no-op when nobody is logged in.
func (m *Manager) RecordActivity(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return store.TouchActivity(ctx, m.db, m.now())
}

// Expired reports whether a logged-in session has exceeded the idle
// window. With nobody logged in there is nothing to expire.
func (m *Manager) Expired(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil || sess == nil {
		return false, err
	}
	last, err := store.GetLastActivity(ctx, m.db)
	if err != nil {
		return false, err
	}
	return m.idledOut(last), nil
}

// Logout clears the acting identity and the activity marker.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.ClearSession(ctx, m.db)
}

// Resume restores a persisted identity on process start. An identity
// whose idle window ran out while the process was down is discarded
// silently.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil || sess == nil {
		return err
	}
	last, err := store.GetLastActivity(ctx, m.db)
	if err != nil {
		return err
	}
	if m.idledOut(last) {
		return store.ClearSession(ctx, m.db)
	}
	slog.Info("session restored", "email", sess.Email)
	return nil
}

// Watch periodically checks the idle window and forces a logout when it
// has run out, covering terminals that just sit idle without sending
// requests. Runs until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) {
	ticker := time.NewTicker(m.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.expireIfIdle(ctx); err != nil {
				slog.Error("idle check failed", "error", err)
			}
		}
	}
}

func (m *Manager) expireIfIdle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := store.GetSession(ctx, m.db)
	if err != nil || sess == nil {
		return err
	}
	last, err := store.GetLastActivity(ctx, m.db)
	if err != nil {
		return err
	}
	if !m.idledOut(last) {
		return nil
	}
	if err := store.ClearSession(ctx, m.db); err != nil {
		return err
	}
	slog.Warn("session expired, forced logout", "email", sess.Email, "idle", m.IdleWindow)
	return nil
}

// verify matches the email case-insensitively and checks the password
// hash. Both failure modes collapse into ErrInvalidCredentials.
func (m *Manager) verify(ctx context.Context, email, password string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, m.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (m *Manager) activate(ctx context.Context, user *model.User, jti string) (*model.Identity, error) {
	now := m.now()
	sess := model.Session{
		UserID:     user.ID,
		Email:      user.Email,
		TokenJTI:   jti,
		LoggedInAt: now,
	}
	if err := store.SaveSession(ctx, m.db, sess); err != nil {
		return nil, err
	}
	if err := store.TouchActivity(ctx, m.db, now); err != nil {
		return nil, err
	}
	ident := identityFor(*user)
	return &ident, nil
}

func (m *Manager) resolve(ctx context.Context) (*model.Identity, error) {
	sess, err := store.GetSession(ctx, m.db)
	if err != nil || sess == nil {
		return nil, err
	}
	user, err := store.GetUser(ctx, m.db, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	ident := identityFor(*user)
	return &ident, nil
}

// idledOut treats a missing activity marker as expired, so a slot
// without one can never linger.
func (m *Manager) idledOut(last time.Time) bool {
	if last.IsZero() {
		return true
	}
	return m.now().Sub(last) > m.IdleWindow
}

func identityFor(u model.User) model.Identity {
	return model.Identity{
		UserID:         u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		ExtendedAccess: u.ExtendedAccess,
	}
}
