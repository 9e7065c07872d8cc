package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fundbuero/internal/model"
	"fundbuero/internal/policy"
	"fundbuero/internal/store"
)

// UsersHandler handles account management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

// userResponse is the sanitized account view. User records carry the
// password hash in their serialized form, so they never marshal
// directly into a response.
type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	ExtendedAccess bool      `json:"extended_access"`
	CreatedAt      time.Time `json:"created_at"`
}

func sanitizeUser(u model.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		ExtendedAccess: u.ExtendedAccess,
		CreatedAt:      u.CreatedAt,
	}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type setAccessRequest struct {
	ExtendedAccess bool `json:"extended_access"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, sanitizeUser(u))
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Name == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "email, name, password, and role required")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	actor := GetIdentity(r.Context())
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    time.Now(),
		CreatedBy:    actor.UserID,
	}
	if err := store.CreateUser(r.Context(), h.DB, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			jsonError(w, http.StatusConflict, "email already registered")
			return
		}
		slog.Error("failed to create user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	slog.Info("user created", "by", actor.Email, "new_user", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusCreated, sanitizeUser(user))
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, sanitizeUser(*user))
}

// Update handles PUT /api/users/{id}, changing display name and role.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "name and valid role required")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	actor := GetIdentity(r.Context())
	if req.Role != target.Role && !policy.CanChangeRole(*actor, *target) {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, func(u *model.User) {
		u.Name = req.Name
		u.Role = req.Role
	})
	if err != nil || user == nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	slog.Info("user updated", "by", actor.Email, "target", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusOK, sanitizeUser(*user))
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, func(u *model.User) {
		u.PasswordHash = string(hash)
	})
	if err != nil {
		slog.Error("failed to reset password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	actor := GetIdentity(r.Context())
	slog.Info("user password reset", "by", actor.Email, "target", user.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// SetAccess handles PUT /api/users/{id}/access, toggling the extended
// view window for non-admin accounts.
func (h *UsersHandler) SetAccess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req setAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update access")
		return
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	actor := GetIdentity(r.Context())
	if !policy.CanGrantExtended(*actor, *target) {
		jsonError(w, http.StatusBadRequest, "admin accounts always have extended access")
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, func(u *model.User) {
		u.ExtendedAccess = req.ExtendedAccess
	})
	if err != nil || user == nil {
		slog.Error("failed to update access", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update access")
		return
	}

	slog.Info("extended access changed", "by", actor.Email, "target", user.Email, "extended", user.ExtendedAccess)
	jsonResponse(w, http.StatusOK, sanitizeUser(*user))
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	actor := GetIdentity(r.Context())
	if !policy.CanDeleteUser(*actor, *target) {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if _, err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	slog.Info("user deleted", "by", actor.Email, "deleted_user", target.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
