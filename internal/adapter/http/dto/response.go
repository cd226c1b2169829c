package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
)

// BalanceResponse represents one lane's balance in API responses.
type BalanceResponse struct {
	PlayerID string          `json:"player_id"`
	Lane     string          `json:"lane"`
	Balance  decimal.Decimal `json:"balance"`
}

// TransferResponse represents a transfer attempt in API responses.
type TransferResponse struct {
	ID        string          `json:"id"`
	FromID    string          `json:"from_id"`
	ToID      string          `json:"to_id"`
	Lane      string          `json:"lane"`
	Amount    decimal.Decimal `json:"amount"`
	State     string          `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	Error     string          `json:"error,omitempty"`
}

// TransferFromDomain converts a domain transfer to a response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:        t.ID,
		FromID:    t.FromID,
		ToID:      t.ToID,
		Lane:      string(t.Lane),
		Amount:    t.Amount,
		State:     string(t.State),
		CreatedAt: t.CreatedAt,
	}
}

// SessionResponse represents an attached player record in API responses.
type SessionResponse struct {
	PlayerID    string          `json:"player_id"`
	Name        string          `json:"name,omitempty"`
	BankBalance decimal.Decimal `json:"bank_balance"`
	CashBalance decimal.Decimal `json:"cash_balance"`
}

// SessionFromRecord converts a player record to a session response.
func SessionFromRecord(rec *domain.PlayerRecord) *SessionResponse {
	return &SessionResponse{
		PlayerID:    rec.ID,
		Name:        rec.Name,
		BankBalance: rec.BankBalance,
		CashBalance: rec.CashBalance,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
