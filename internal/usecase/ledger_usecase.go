package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/infrastructure/lockmap"
	"github.com/iho/playerbank/internal/infrastructure/metrics"
)

// tier is the storage tier an identity resolved to.
type tier int

const (
	tierActive tier = iota
	tierCold
)

func (t tier) String() string {
	if t == tierActive {
		return "active"
	}
	return "cold"
}

// resolution is the outcome of resolving an identity: either a live record
// pinned by a session, or a freshly loaded cold record that exists only for
// the duration of the operation.
type resolution struct {
	tier   tier
	record *domain.PlayerRecord
}

// LedgerUseCase is the single path through which any balance is read or
// changed. Mutations of the same identity are serialized by a per-identity
// lock taken before the active/cold resolution, so a player flipping tiers
// mid-operation cannot produce a lost update.
type LedgerUseCase struct {
	store    ColdStore
	registry ActiveRegistry
	locks    *lockmap.Map
	places   int32
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. locks is shared with the
// session registry so attach and detach serialize against mutations of the
// same identity. places is the number of decimal places every delta and
// value is rounded to.
func NewLedgerUseCase(store ColdStore, registry ActiveRegistry, locks *lockmap.Map, places int32, logger zerolog.Logger, m *metrics.Metrics) *LedgerUseCase {
	return &LedgerUseCase{
		store:    store,
		registry: registry,
		locks:    locks,
		places:   places,
		logger:   logger,
		metrics:  m,
	}
}

// resolve finds the authoritative record for id. The active check and the
// cold load happen together here so every caller handles both tiers through
// one result instead of scattered map lookups.
func (uc *LedgerUseCase) resolve(ctx context.Context, id string) (resolution, error) {
	if rec, ok := uc.registry.ActiveRecord(id); ok {
		return resolution{tier: tierActive, record: rec}, nil
	}

	rec, err := uc.store.LoadOrInit(ctx, id, "")
	if err != nil {
		return resolution{}, err
	}

	return resolution{tier: tierCold, record: rec}, nil
}

// Balance returns the balance of the given lane. Active records are read
// under the identity's lock; cold records are loaded from storage and not
// cached beyond the call. An unknown identity resolves to a default record.
func (uc *LedgerUseCase) Balance(ctx context.Context, id string, lane domain.Lane) (decimal.Decimal, error) {
	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	res, err := uc.resolve(ctx, id)
	if err != nil {
		uc.metrics.RecordLedgerError("io_failure")
		return decimal.Zero, err
	}

	uc.metrics.RecordLedgerOp("balance", res.tier.String())

	return res.record.Balance(lane), nil
}

// Modify applies delta to the lane. The delta is rounded before being
// applied. A delta that would drive the balance negative is rejected with
// domain.ErrInsufficientFunds and nothing is mutated. Cold records are
// persisted immediately, exactly once; active records are persisted later by
// the session collaborator.
func (uc *LedgerUseCase) Modify(ctx context.Context, id string, lane domain.Lane, delta decimal.Decimal) (decimal.Decimal, error) {
	delta = delta.Round(uc.places)

	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	res, err := uc.resolve(ctx, id)
	if err != nil {
		uc.metrics.RecordLedgerError("io_failure")
		return decimal.Zero, err
	}

	if err := res.record.ValidateDelta(lane, delta); err != nil {
		uc.metrics.RecordLedgerError("insufficient_funds")
		return res.record.Balance(lane), err
	}

	newBalance := res.record.ApplyDelta(lane, delta)

	if res.tier == tierCold {
		// Persist before publishing the mutation: a failed save must leave
		// the on-disk record at its previous value.
		saved := res.record.Clone()
		saved.SetBalance(lane, newBalance)

		if err := uc.store.Save(ctx, saved); err != nil {
			uc.metrics.RecordLedgerError("io_failure")
			return res.record.Balance(lane), fmt.Errorf("modify %s/%s: %w", id, lane, err)
		}
	}

	res.record.SetBalance(lane, newBalance)

	uc.metrics.RecordLedgerOp("modify", res.tier.String())
	uc.logger.Debug().
		Str("player_id", id).
		Str("lane", string(lane)).
		Str("delta", delta.String()).
		Str("balance", newBalance.String()).
		Str("tier", res.tier.String()).
		Msg("balance modified")

	return newBalance, nil
}

// Set overwrites the lane with value. Negative values are clamped to zero,
// mirroring the record setter, not rejected. Persistence follows the same
// rule as Modify.
func (uc *LedgerUseCase) Set(ctx context.Context, id string, lane domain.Lane, value decimal.Decimal) (decimal.Decimal, error) {
	value = value.Round(uc.places)
	if value.IsNegative() {
		value = decimal.Zero
	}

	uc.locks.Lock(id)
	defer uc.locks.Unlock(id)

	res, err := uc.resolve(ctx, id)
	if err != nil {
		uc.metrics.RecordLedgerError("io_failure")
		return decimal.Zero, err
	}

	if res.tier == tierCold {
		saved := res.record.Clone()
		saved.SetBalance(lane, value)

		if err := uc.store.Save(ctx, saved); err != nil {
			uc.metrics.RecordLedgerError("io_failure")
			return res.record.Balance(lane), fmt.Errorf("set %s/%s: %w", id, lane, err)
		}
	}

	res.record.SetBalance(lane, value)

	uc.metrics.RecordLedgerOp("set", res.tier.String())

	return value, nil
}
