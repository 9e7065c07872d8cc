package api

import (
	"database/sql"
	"net/http"

	"fundbuero/internal/policy"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
)

// NewRouter creates the API router with all endpoints registered.
// Account and location management is gated at the router; item and
// archive routes are gated inside the registry, which knows the
// per-operation rules.
func NewRouter(db *sql.DB, sessions *session.Manager, reg *registry.Registry, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Sessions: sessions, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Registry: reg}
	archiveHandler := &ArchiveHandler{DB: db, Registry: reg}
	handoverHandler := &HandoverHandler{Registry: reg, Sessions: sessions}

	authMW := AuthMiddleware(jwtSecret, sessions)
	manageUsers := Require(policy.CanManageUsers)
	manageLocations := Require(policy.CanManageLocations)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Session.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/session", authMW(http.HandlerFunc(authHandler.Session)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(manageUsers(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(manageUsers(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(manageUsers(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(manageUsers(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(manageUsers(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("PUT /api/users/{id}/access", authMW(manageUsers(http.HandlerFunc(usersHandler.SetAccess))))
	mux.Handle("DELETE /api/users/{id}", authMW(manageUsers(http.HandlerFunc(usersHandler.Delete))))

	// Locations: read (all), write (admin).
	mux.Handle("GET /api/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("POST /api/locations", authMW(manageLocations(http.HandlerFunc(locationsHandler.Create))))
	mux.Handle("PUT /api/locations/{id}", authMW(manageLocations(http.HandlerFunc(locationsHandler.Update))))
	mux.Handle("DELETE /api/locations/{id}", authMW(manageLocations(http.HandlerFunc(locationsHandler.Delete))))

	// Items.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("POST /api/items/{id}/store", authMW(http.HandlerFunc(itemsHandler.Store)))
	mux.Handle("POST /api/items/{id}/restore", authMW(http.HandlerFunc(itemsHandler.Restore)))
	mux.Handle("POST /api/items/{id}/sell", authMW(http.HandlerFunc(itemsHandler.Sell)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))
	mux.Handle("GET /api/items/{id}/document", authMW(http.HandlerFunc(itemsHandler.Document)))

	// Archive.
	mux.Handle("GET /api/archive", authMW(http.HandlerFunc(archiveHandler.List)))
	mux.Handle("GET /api/archive/{id}", authMW(http.HandlerFunc(archiveHandler.Get)))
	mux.Handle("GET /api/archive/{id}/document", authMW(http.HandlerFunc(archiveHandler.Document)))

	// Handover protocol.
	mux.Handle("POST /api/items/{id}/handover", authMW(http.HandlerFunc(handoverHandler.Begin)))
	mux.Handle("GET /api/handover", authMW(http.HandlerFunc(handoverHandler.State)))
	mux.Handle("POST /api/handover/login", authMW(http.HandlerFunc(handoverHandler.Login)))
	mux.Handle("POST /api/handover/scan", authMW(http.HandlerFunc(handoverHandler.Scan)))
	mux.Handle("POST /api/handover/confirm", authMW(http.HandlerFunc(handoverHandler.Confirm)))
	mux.Handle("POST /api/handover/recipient", authMW(http.HandlerFunc(handoverHandler.Recipient)))
	mux.Handle("DELETE /api/handover", authMW(http.HandlerFunc(handoverHandler.Cancel)))

	return mux
}
