package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"fundbuero/internal/auth"
	"fundbuero/internal/model"
	"fundbuero/internal/session"
	"fundbuero/internal/store"
)

// AuthHandler handles login, logout and the self-service password
// change.
type AuthHandler struct {
	DB        *sql.DB
	Sessions  *session.Manager
	JWTSecret string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login. A successful login replaces any
// previous session and binds the terminal to the freshly minted token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	ident, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, jti, err := auth.GenerateToken(h.JWTSecret, ident.UserID, ident.Email, ident.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	if err := h.Sessions.BindToken(r.Context(), jti); err != nil {
		slog.Error("binding token failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user logged in", "email", ident.Email, "role", ident.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: *ident})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if err := h.Sessions.Logout(r.Context()); err != nil {
		slog.Error("logout failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ident != nil {
		slog.Info("user logged out", "email", ident.Email)
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Session handles GET /api/auth/session, returning the acting identity.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, GetIdentity(r.Context()))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, ident.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if _, err := store.UpdateUser(r.Context(), h.DB, ident.UserID, func(u *model.User) {
		u.PasswordHash = string(hash)
	}); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("user changed own password", "email", ident.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
