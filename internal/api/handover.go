package api

import (
	"log/slog"
	"net/http"
	"sync"

	"fundbuero/internal/handover"
	"fundbuero/internal/model"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
)

// HandoverHandler drives the three-step handover protocol. A terminal
// runs at most one handover at a time; beginning a new one abandons any
// in-flight protocol.
type HandoverHandler struct {
	Registry *registry.Registry
	Sessions *session.Manager

	mu      sync.Mutex
	current *handover.Protocol
}

type handoverState struct {
	Step     string          `json:"step"`
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Actor    *model.Identity `json:"actor,omitempty"`
}

func stateOf(p *handover.Protocol) handoverState {
	item := p.Item()
	return handoverState{
		Step:     p.Step().String(),
		ItemID:   item.ID,
		ItemName: item.Name,
		Actor:    p.Actor(),
	}
}

func (h *HandoverHandler) protocol() *handover.Protocol {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

type handoverLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type handoverCodeRequest struct {
	Code string `json:"code"`
}

// Begin handles POST /api/items/{id}/handover.
func (h *HandoverHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	id := model.NormalizeItemID(r.PathValue("id"))

	p, err := handover.Begin(r.Context(), h.Registry, h.Sessions, *ident, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.mu.Lock()
	if h.current != nil && h.current.Step() != handover.StepDone {
		slog.Warn("abandoning in-flight handover", "item", h.current.Item().ID)
		h.current.Cancel()
	}
	h.current = p
	h.mu.Unlock()

	slog.Info("handover started", "item", id, "by", ident.Email)
	jsonResponse(w, http.StatusCreated, stateOf(p))
}

// State handles GET /api/handover.
func (h *HandoverHandler) State(w http.ResponseWriter, r *http.Request) {
	p := h.protocol()
	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}
	jsonResponse(w, http.StatusOK, stateOf(p))
}

// Login handles POST /api/handover/login, the first protocol step.
func (h *HandoverHandler) Login(w http.ResponseWriter, r *http.Request) {
	p := h.protocol()
	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}

	var req handoverLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := p.Authenticate(r.Context(), req.Email, req.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("handover authenticated", "item", p.Item().ID, "actor", req.Email)
	jsonResponse(w, http.StatusOK, stateOf(p))
}

// Scan handles POST /api/handover/scan, feeding scanner input. The
// identifier verifies automatically once complete.
func (h *HandoverHandler) Scan(w http.ResponseWriter, r *http.Request) {
	p := h.protocol()
	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}

	var req handoverCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := p.Scan(r.Context(), req.Code); err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stateOf(p))
}

// Confirm handles POST /api/handover/confirm, the manual-entry
// verification.
func (h *HandoverHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p := h.protocol()
	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}

	var req handoverCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := p.Confirm(r.Context(), req.Code); err != nil {
		writeDomainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stateOf(p))
}

// Recipient handles POST /api/handover/recipient, the final step. On
// success the item is archived and the protocol finishes.
func (h *HandoverHandler) Recipient(w http.ResponseWriter, r *http.Request) {
	p := h.protocol()
	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}

	var rec model.Recipient
	if err := decodeJSON(r, &rec); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	archived, err := p.Complete(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.mu.Lock()
	if h.current == p {
		h.current = nil
	}
	h.mu.Unlock()

	slog.Info("handover completed", "item", archived.ID, "recipient", archived.Recipient.Name)
	jsonResponse(w, http.StatusOK, archived)
}

// Cancel handles DELETE /api/handover.
func (h *HandoverHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	p := h.current
	h.current = nil
	h.mu.Unlock()

	if p == nil {
		jsonError(w, http.StatusNotFound, "no handover in progress")
		return
	}
	p.Cancel()

	slog.Info("handover cancelled", "item", p.Item().ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "handover cancelled"})
}
