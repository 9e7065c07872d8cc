package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fundbuero/internal/auth"
	"fundbuero/internal/model"
	"fundbuero/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware validates the bearer token and resolves the acting
// identity from the session slot. The token's JTI must match the slot
// binding and the idle window must not have run out; a successful pass
// also counts as activity.
func AuthMiddleware(secret string, sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ident, err := sessions.Authenticate(r.Context(), claims.ID)
			switch {
			case errors.Is(err, session.ErrExpired):
				jsonError(w, http.StatusUnauthorized, "session expired")
				return
			case errors.Is(err, session.ErrNoSession):
				jsonError(w, http.StatusUnauthorized, "no active session")
				return
			case err != nil:
				slog.Error("session check failed", "error", err)
				jsonError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the acting identity from the context.
func GetIdentity(ctx context.Context) *model.Identity {
	ident, _ := ctx.Value(identityKey).(*model.Identity)
	return ident
}

// Require rejects requests whose acting identity fails the policy
// check. Anonymous requests get 401, failed checks 403.
func Require(check func(model.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := GetIdentity(r.Context())
			if ident == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !check(*ident) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and
// duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
