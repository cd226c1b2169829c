package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/playerbank/internal/usecase"
)

// Autosaver periodically snapshots every pinned record and persists the
// copies through the dispatcher's worker pool. A crash between detaches then
// loses at most one interval of active-session mutations.
type Autosaver struct {
	registry   *Registry
	store      usecase.ColdStore
	dispatcher *Dispatcher
	interval   time.Duration
	logger     zerolog.Logger
}

// NewAutosaver creates an autosaver. It does nothing until Run is called.
func NewAutosaver(registry *Registry, store usecase.ColdStore, dispatcher *Dispatcher, interval time.Duration, logger zerolog.Logger) *Autosaver {
	return &Autosaver{
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, flushing on every tick.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush submits one save task per pinned record and returns the number of
// tasks accepted by the dispatcher. Records are snapshotted first, so the
// saves race only with newer mutations, never with partial ones.
func (a *Autosaver) Flush(ctx context.Context) int {
	submitted := 0
	for _, rec := range a.registry.SnapshotAll() {
		rec := rec
		ok := a.dispatcher.Submit(func(ctx context.Context) error {
			return a.store.Save(ctx, rec)
		}, nil)
		if !ok {
			a.logger.Warn().Str("player_id", rec.ID).Msg("autosave queue full, record skipped this tick")
			continue
		}
		submitted++
	}

	if submitted > 0 {
		a.logger.Debug().Int("records", submitted).Msg("autosave flush submitted")
	}
	return submitted
}
