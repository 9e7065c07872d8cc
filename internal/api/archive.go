package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"fundbuero/internal/docs"
	"fundbuero/internal/model"
	"fundbuero/internal/registry"
	"fundbuero/internal/store"
)

// ArchiveHandler handles read access to handed-over records.
type ArchiveHandler struct {
	DB       *sql.DB
	Registry *registry.Registry
}

// List handles GET /api/archive, newest handover first.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())

	records, err := h.Registry.Archive(r.Context(), *ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, records)
}

// Get handles GET /api/archive/{id}.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	record, err := h.Registry.ArchivedItem(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, record)
}

// Document handles GET /api/archive/{id}/document, a reprint of the
// handover receipt.
func (h *ArchiveHandler) Document(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	record, err := h.Registry.ArchivedItem(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	registrar := ""
	if record.HandedOverBy != "" {
		if user, err := store.GetUser(r.Context(), h.DB, record.HandedOverBy); err == nil && user != nil {
			registrar = user.Name
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docs.RenderArchived(w, *record, registrar); err != nil {
		slog.Error("failed to render receipt", "id", id, "error", err)
	}
}
