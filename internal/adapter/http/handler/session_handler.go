package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/playerbank/internal/adapter/http/dto"
	"github.com/iho/playerbank/internal/domain"
)

// SessionService defines the behavior needed by SessionHandler.
type SessionService interface {
	Attach(ctx context.Context, id, name string) (*domain.PlayerRecord, error)
	Detach(ctx context.Context, id string) error
	Snapshot(id string) (*domain.PlayerRecord, bool)
	Count() int
}

// SessionHandler handles session attach and detach requests.
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Attach pins the player's record in memory for the duration of a session.
func (h *SessionHandler) Attach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := domain.ValidatePlayerID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid player ID", err.Error())
		return
	}

	var req dto.AttachSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	if err := domain.ValidateDisplayName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid display name", err.Error())
		return
	}

	if _, err := h.sessions.Attach(r.Context(), id, req.Name); err != nil {
		writeError(w, mapDomainError(err), "failed to attach session", err.Error())
		return
	}

	// Respond from a snapshot; the pinned record may already be mutated by
	// a concurrent ledger operation.
	rec, ok := h.sessions.Snapshot(id)
	if !ok {
		writeError(w, http.StatusConflict, "session detached while attaching", id)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromRecord(rec))
}

// Detach persists the pinned record and releases it. A detach for a player
// with no session is a no-op.
func (h *SessionHandler) Detach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing player ID", "")
		return
	}

	if err := h.sessions.Detach(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to detach session", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "detached"})
}

// Get returns a snapshot of an attached player's record.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing player ID", "")
		return
	}

	rec, ok := h.sessions.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no active session", id)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromRecord(rec))
}
