package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/playerbank/internal/adapter/http/dto"
	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transfers TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// Create runs a transfer attempt. The response always carries the terminal
// state of the attempt; only committed transfers return 200.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	lane, err := domain.ParseLane(req.Lane)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lane", err.Error())
		return
	}

	if err := domain.ValidatePlayerID(req.FromID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender ID", err.Error())
		return
	}
	if err := domain.ValidatePlayerID(req.ToID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient ID", err.Error())
		return
	}

	t, err := h.transfers.Transfer(r.Context(), req.ToUseCaseInput(lane))
	resp := dto.TransferFromDomain(t)
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, mapDomainError(err), resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
