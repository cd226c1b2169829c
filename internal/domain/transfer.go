package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState is the terminal outcome of a transfer attempt.
type TransferState string

const (
	// TransferPending means the attempt has not reached a terminal state yet.
	TransferPending TransferState = "pending"
	// TransferCommitted means both legs applied.
	TransferCommitted TransferState = "committed"
	// TransferRejected means the precheck failed; nothing was mutated.
	TransferRejected TransferState = "rejected"
	// TransferFailedNoEffect means the debit leg failed; nothing was mutated.
	TransferFailedNoEffect TransferState = "failed_no_effect"
	// TransferFailedCompensated means the credit leg failed and the debit was
	// successfully reversed.
	TransferFailedCompensated TransferState = "failed_compensated"
	// TransferFailedUncompensated means the credit leg failed and the reversal
	// of the debit failed too. The ledger is observably inconsistent with the
	// intended operation until an operator intervenes.
	TransferFailedUncompensated TransferState = "failed_uncompensated"
)

// Terminal reports whether the state is final.
func (s TransferState) Terminal() bool {
	return s != TransferPending
}

// Transfer represents one attempt to move an amount between two players
// within a single lane.
type Transfer struct {
	ID        string
	FromID    string
	ToID      string
	Lane      Lane
	Amount    decimal.Decimal
	State     TransferState
	CreatedAt time.Time
}

// Validate validates the transfer request.
func (t *Transfer) Validate() error {
	if t.FromID == t.ToID {
		return ErrSamePlayer
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}
