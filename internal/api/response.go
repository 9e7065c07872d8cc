package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fundbuero/internal/handover"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeDomainError maps the domain sentinels onto HTTP statuses.
// Anything unrecognized is an internal error and gets logged rather than
// leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, registry.ErrDenied):
		jsonError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, registry.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotEligible):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials):
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, handover.ErrMismatch):
		jsonError(w, http.StatusConflict, "identifier mismatch")
	case errors.Is(err, handover.ErrWrongStep):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
