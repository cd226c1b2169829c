// Package session owns the live-record registry: the set of player records
// currently pinned in memory because a session is attached. The ledger reads
// this registry to decide between the active and cold paths; it never writes
// it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/infrastructure/lockmap"
	"github.com/iho/playerbank/internal/infrastructure/metrics"
	"github.com/iho/playerbank/internal/usecase"
)

// Registry implements usecase.ActiveRegistry. While a player is attached,
// the pinned record is the single authoritative instance; the cold store is
// not read again for that player until detach.
//
// The registry shares a per-identity lock map with the ledger. Attach,
// detach, and snapshot hold the identity's lock, so a tier flip cannot
// interleave with a ledger mutation of the same identity.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*domain.PlayerRecord

	store   usecase.ColdStore
	locks   *lockmap.Map
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry backed by the given cold store.
// locks must be the same map the ledger serializes its mutations with.
func NewRegistry(store usecase.ColdStore, locks *lockmap.Map, logger zerolog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		records: make(map[string]*domain.PlayerRecord),
		store:   store,
		locks:   locks,
		logger:  logger,
		metrics: m,
	}
}

// Attach loads (or initializes) the player's durable record and pins it in
// memory. Attaching an already-attached player returns the existing record.
func (r *Registry) Attach(ctx context.Context, id, name string) (*domain.PlayerRecord, error) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if ok {
		return rec, nil
	}

	loaded, err := r.store.LoadOrInit(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", id, err)
	}

	if name != "" {
		loaded.Name = name
	}

	r.mu.Lock()
	r.records[id] = loaded
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSessions.Inc()
	}
	r.logger.Info().Str("player_id", id).Msg("session attached")

	return loaded, nil
}

// Detach persists the pinned record and evicts it. On persist failure the
// record stays pinned and remains the source of truth, so a later retry
// cannot lose the in-memory state. The identity's lock is held across the
// save and the eviction; a ledger mutation either lands before the save or
// resolves cold after it.
func (r *Registry) Detach(ctx context.Context, id string) error {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	r.mu.Lock()
	rec, ok := r.records[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := r.store.Save(ctx, rec); err != nil {
		if r.metrics != nil {
			r.metrics.DetachFailures.Inc()
		}
		r.logger.Error().
			Err(err).
			Str("player_id", id).
			Msg("detach persist failed, record stays pinned")

		return fmt.Errorf("detach %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSessions.Dec()
	}
	r.logger.Info().Str("player_id", id).Msg("session detached")

	return nil
}

// DetachAll persists and evicts every pinned record, typically on shutdown.
// It keeps going after individual failures and returns the first error.
func (r *Registry) DetachAll(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, id := range ids {
		if err := r.Detach(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// IsActive reports whether the player has a pinned record.
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// ActiveRecord returns the pinned record for id.
func (r *Registry) ActiveRecord(id string) (*domain.PlayerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Snapshot returns a copy of the pinned record for display purposes, so
// callers never hold a mutable reference into the registry. The clone is
// taken under the identity's lock so it never observes a half-applied
// mutation.
func (r *Registry) Snapshot(id string) (*domain.PlayerRecord, bool) {
	r.locks.Lock(id)
	defer r.locks.Unlock(id)

	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// SnapshotAll returns copies of every pinned record, for bulk persistence.
// Each clone is taken under its identity's lock.
func (r *Registry) SnapshotAll() []*domain.PlayerRecord {
	r.mu.RLock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make([]*domain.PlayerRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.Snapshot(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of attached sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
