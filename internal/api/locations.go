package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fundbuero/internal/model"
	"fundbuero/internal/store"
)

// LocationsHandler handles the found-location catalog. Reads are open to
// every authenticated user; mutations are admin only (router-gated).
type LocationsHandler struct {
	DB *sql.DB
}

type locationRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	actor := GetIdentity(r.Context())
	location := model.Location{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
		CreatedBy: actor.UserID,
	}
	if err := store.CreateLocation(r.Context(), h.DB, location); err != nil {
		slog.Error("failed to create location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}

	jsonResponse(w, http.StatusCreated, location)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	location, err := store.UpdateLocation(r.Context(), h.DB, r.PathValue("id"), func(l *model.Location) {
		l.Name = req.Name
	})
	if err != nil {
		slog.Error("failed to update location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}
	if location == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	jsonResponse(w, http.StatusOK, location)
}

// Delete handles DELETE /api/locations/{id}. Items keep the location
// name they were registered with.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := store.DeleteLocation(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to delete location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete location")
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
