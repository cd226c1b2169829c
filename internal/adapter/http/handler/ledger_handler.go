package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/adapter/http/dto"
	"github.com/iho/playerbank/internal/domain"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	Balance(ctx context.Context, id string, lane domain.Lane) (decimal.Decimal, error)
	Modify(ctx context.Context, id string, lane domain.Lane, delta decimal.Decimal) (decimal.Decimal, error)
	Set(ctx context.Context, id string, lane domain.Lane, value decimal.Decimal) (decimal.Decimal, error)
}

// LedgerHandler handles balance-related HTTP requests.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

func laneParams(w http.ResponseWriter, r *http.Request) (string, domain.Lane, bool) {
	id := chi.URLParam(r, "id")
	if err := domain.ValidatePlayerID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid player ID", err.Error())
		return "", "", false
	}

	lane, err := domain.ParseLane(chi.URLParam(r, "lane"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lane", err.Error())
		return "", "", false
	}

	return id, lane, true
}

// GetBalance returns the balance of one lane.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, lane, ok := laneParams(w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(r.Context(), id, lane)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		PlayerID: id,
		Lane:     string(lane),
		Balance:  balance,
	})
}

// Modify applies a signed delta to one lane.
func (h *LedgerHandler) Modify(w http.ResponseWriter, r *http.Request) {
	id, lane, ok := laneParams(w, r)
	if !ok {
		return
	}

	var req dto.ModifyBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	balance, err := h.ledger.Modify(r.Context(), id, lane, req.Delta)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to modify balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		PlayerID: id,
		Lane:     string(lane),
		Balance:  balance,
	})
}

// Set overwrites one lane.
func (h *LedgerHandler) Set(w http.ResponseWriter, r *http.Request) {
	id, lane, ok := laneParams(w, r)
	if !ok {
		return
	}

	var req dto.SetBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	balance, err := h.ledger.Set(r.Context(), id, lane, req.Value)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to set balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		PlayerID: id,
		Lane:     string(lane),
		Balance:  balance,
	})
}
