package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"fundbuero/internal/docs"
	"fundbuero/internal/model"
	"fundbuero/internal/registry"
	"fundbuero/internal/store"
)

// ItemsHandler handles item endpoints. Access decisions live in the
// registry; the handler only translates requests and errors.
type ItemsHandler struct {
	DB       *sql.DB
	Registry *registry.Registry
}

type itemRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Brand         string `json:"brand"`
	Material      string `json:"material"`
	Color         string `json:"color"`
	Shape         string `json:"shape"`
	Size          string `json:"size"`
	FoundDate     string `json:"found_date"`
	FoundLocation string `json:"found_location"`
	FinderName    string `json:"finder_name"`
	FinderContact string `json:"finder_contact"`
}

// draft converts the wire form into a registry draft. The found date
// travels as a plain YYYY-MM-DD day.
func (req itemRequest) draft() (registry.ItemDraft, bool) {
	draft := registry.ItemDraft{
		Name:          req.Name,
		Description:   req.Description,
		Brand:         req.Brand,
		Material:      req.Material,
		Color:         req.Color,
		Shape:         req.Shape,
		Size:          req.Size,
		FoundLocation: req.FoundLocation,
		FinderName:    req.FinderName,
		FinderContact: req.FinderContact,
	}
	if req.FoundDate != "" {
		day, err := time.Parse("2006-01-02", req.FoundDate)
		if err != nil {
			return draft, false
		}
		draft.FoundDate = day
	}
	return draft, true
}

// List handles GET /api/items. Admins may pass ?all=true to bypass the
// view window.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	all := r.URL.Query().Get("all") == "true"

	items, err := h.Registry.Items(r.Context(), *ident, all)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft, ok := req.draft()
	if !ok {
		jsonError(w, http.StatusBadRequest, "found_date must be YYYY-MM-DD")
		return
	}

	ident := GetIdentity(r.Context())
	item, err := h.Registry.Register(r.Context(), *ident, draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("item registered", "id", item.ID, "name", item.Name, "by", ident.Email)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	item, err := h.Registry.Item(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft, ok := req.draft()
	if !ok {
		jsonError(w, http.StatusBadRequest, "found_date must be YYYY-MM-DD")
		return
	}

	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	item, err := h.Registry.Update(r.Context(), *ident, id, draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	if err := h.Registry.Delete(r.Context(), *ident, id); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("item deleted", "id", id, "by", ident.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Store handles POST /api/items/{id}/store.
func (h *ItemsHandler) Store(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Registry.StoreItem, "item stored")
}

// Restore handles POST /api/items/{id}/restore.
func (h *ItemsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Registry.RestoreItem, "item restored")
}

// Sell handles POST /api/items/{id}/sell.
func (h *ItemsHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Registry.SellItem, "item sold")
}

func (h *ItemsHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, model.Identity, string) (*model.Item, error), event string) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	item, err := apply(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info(event, "id", item.ID, "by", ident.Email)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	// Limit to 10 MB; the pipeline shrinks anything accepted.
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	item, err := h.Registry.AttachImage(r.Context(), *ident, id, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	data, mime, err := h.Registry.ItemImage(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// Document handles GET /api/items/{id}/document, the printable
// registration slip.
func (h *ItemsHandler) Document(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	item, err := h.Registry.Item(r.Context(), *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	registrar := ""
	if item.CreatedBy != "" {
		if user, err := store.GetUser(r.Context(), h.DB, item.CreatedBy); err == nil && user != nil {
			registrar = user.Name
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docs.RenderItem(w, *item, registrar); err != nil {
		slog.Error("failed to render document", "id", id, "error", err)
	}
}
