package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/infrastructure/metrics"
)

// TransferUseCase composes a debit and a credit into one logically-atomic
// operation. It is optimistic: no lock is held across the two legs, so a
// failed credit is undone by re-crediting the sender (compensation). Every
// attempt ends in exactly one terminal state.
type TransferUseCase struct {
	ledger  Ledger
	idGen   IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(ledger Ledger, idGen IDGenerator, logger zerolog.Logger, m *metrics.Metrics) *TransferUseCase {
	return &TransferUseCase{
		ledger:  ledger,
		idGen:   idGen,
		logger:  logger,
		metrics: m,
	}
}

// TransferInput represents input for a transfer attempt.
type TransferInput struct {
	FromID string
	ToID   string
	Lane   domain.Lane
	Amount decimal.Decimal
}

// Transfer moves an amount between two players within one lane. The returned
// transfer always carries a terminal state; err is nil only when the state
// is TransferCommitted.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	t := &domain.Transfer{
		ID:        uc.idGen.Generate(),
		FromID:    input.FromID,
		ToID:      input.ToID,
		Lane:      input.Lane,
		Amount:    input.Amount,
		State:     domain.TransferPending,
		CreatedAt: time.Now().UTC(),
	}

	err := uc.run(ctx, t)

	amount, _ := t.Amount.Float64()
	uc.metrics.RecordTransfer(string(t.State), amount)

	if t.State == domain.TransferCommitted {
		uc.logger.Info().
			Str("transfer_id", t.ID).
			Str("from", t.FromID).
			Str("to", t.ToID).
			Str("lane", string(t.Lane)).
			Str("amount", t.Amount.String()).
			Msg("transfer committed")
	}

	return t, err
}

func (uc *TransferUseCase) run(ctx context.Context, t *domain.Transfer) error {
	// 1. Precheck: validate the request and the sender's balance. No lock is
	// held from here to the debit, so the debit itself re-checks.
	if err := t.Validate(); err != nil {
		t.State = domain.TransferRejected
		return err
	}

	if t.Amount.GreaterThan(decimal.RequireFromString(MaxTransferAmount)) {
		t.State = domain.TransferRejected
		return domain.ErrInvalidAmount
	}

	senderBalance, err := uc.ledger.Balance(ctx, t.FromID, t.Lane)
	if err != nil {
		t.State = domain.TransferFailedNoEffect
		return fmt.Errorf("transfer %s: precheck: %w", t.ID, err)
	}

	if senderBalance.LessThan(t.Amount) {
		t.State = domain.TransferRejected
		return domain.ErrInsufficientFunds
	}

	// 2. Debit the sender. A concurrent operation may have spent the balance
	// since the precheck; that surfaces here as insufficient funds and the
	// transfer ends with no effect.
	if _, err := uc.ledger.Modify(ctx, t.FromID, t.Lane, t.Amount.Neg()); err != nil {
		t.State = domain.TransferFailedNoEffect
		return fmt.Errorf("transfer %s: debit: %w", t.ID, err)
	}

	// The debit landed. From here the credit or its compensation must run to
	// completion even if the caller has given up on us.
	ctx = context.WithoutCancel(ctx)

	// 3. Credit the recipient, compensating the sender on failure.
	if _, err := uc.ledger.Modify(ctx, t.ToID, t.Lane, t.Amount); err != nil {
		return uc.compensate(ctx, t, err)
	}

	// 4. Both legs applied.
	t.State = domain.TransferCommitted
	return nil
}

// compensate re-credits the sender after a failed credit leg. A failed
// compensation means the debited amount is gone from the ledger; that state
// must never be discarded silently.
func (uc *TransferUseCase) compensate(ctx context.Context, t *domain.Transfer, creditErr error) error {
	if _, err := uc.ledger.Modify(ctx, t.FromID, t.Lane, t.Amount); err != nil {
		t.State = domain.TransferFailedUncompensated

		uc.logger.Error().
			Str("transfer_id", t.ID).
			Str("from", t.FromID).
			Str("to", t.ToID).
			Str("lane", string(t.Lane)).
			Str("amount", t.Amount.String()).
			AnErr("credit_error", creditErr).
			AnErr("compensation_error", err).
			Msg("transfer uncompensated: sender debited, credit and reversal both failed, operator action required")

		return fmt.Errorf("transfer %s: credit failed (%v): %w", t.ID, creditErr, domain.ErrCompensationFailed)
	}

	t.State = domain.TransferFailedCompensated

	uc.logger.Warn().
		Str("transfer_id", t.ID).
		Str("from", t.FromID).
		Str("to", t.ToID).
		Err(creditErr).
		Msg("transfer compensated: credit failed, debit reversed")

	return fmt.Errorf("transfer %s: credit: %w", t.ID, creditErr)
}
