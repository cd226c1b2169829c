package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/usecase"
)

// AttachSessionRequest represents a session attach request body.
type AttachSessionRequest struct {
	Name string `json:"name,omitempty"`
}

// ModifyBalanceRequest applies a signed delta to one lane.
type ModifyBalanceRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// SetBalanceRequest overwrites one lane.
type SetBalanceRequest struct {
	Value decimal.Decimal `json:"value"`
}

// CreateTransferRequest moves an amount between two players.
type CreateTransferRequest struct {
	FromID string          `json:"from_id"`
	ToID   string          `json:"to_id"`
	Lane   string          `json:"lane"`
	Amount decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input. The lane must already be
// validated by the handler.
func (r *CreateTransferRequest) ToUseCaseInput(lane domain.Lane) usecase.TransferInput {
	return usecase.TransferInput{
		FromID: r.FromID,
		ToID:   r.ToID,
		Lane:   lane,
		Amount: r.Amount,
	}
}
