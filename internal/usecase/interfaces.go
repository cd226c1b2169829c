package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
)

// ColdStore defines durable per-player storage. Load and Save perform file
// I/O and must not be called from the authoritative session loop directly.
type ColdStore interface {
	// LoadOrInit returns the stored record or initializes a new one with
	// default values. Initialization is idempotent.
	LoadOrInit(ctx context.Context, id, nameHint string) (*domain.PlayerRecord, error)
	// Save writes the full record with all-or-nothing visibility.
	Save(ctx context.Context, record *domain.PlayerRecord) error
	// Exists reports whether a record exists without materializing it.
	Exists(ctx context.Context, id string) (bool, error)
}

// ActiveRegistry exposes records pinned in memory by a live session. It is
// owned by the session collaborator; the ledger only reads it. Activity may
// flip between two calls, so callers must not cache the answer across an
// I/O boundary.
type ActiveRegistry interface {
	IsActive(id string) bool
	ActiveRecord(id string) (*domain.PlayerRecord, bool)
}

// Ledger is the balance surface the transfer coordinator drives.
type Ledger interface {
	Balance(ctx context.Context, id string, lane domain.Lane) (decimal.Decimal, error)
	Modify(ctx context.Context, id string, lane domain.Lane, delta decimal.Decimal) (decimal.Decimal, error)
	Set(ctx context.Context, id string, lane domain.Lane, value decimal.Decimal) (decimal.Decimal, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage for the HTTP adapter.
type IdempotencyStore interface {
	// Begin claims key for the caller. claimed means the caller owns the
	// key and must finish with Update or Release. When not claimed,
	// cached holds the stored response of a completed request, or nil
	// while another request is still in flight.
	Begin(ctx context.Context, key string, ttl time.Duration) (claimed bool, cached []byte, err error)
	// Update stores the final response under an already claimed key.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops an unfinished claim so a retry can run.
	Release(ctx context.Context, key string) error
}
