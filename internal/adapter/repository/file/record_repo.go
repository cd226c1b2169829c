// Package file implements the cold store as one JSON file per player,
// addressed by player id. Saves are atomic from the reader's point of view:
// data is written to a temporary file in the same directory and renamed over
// the destination, so a concurrent load never observes a half-written record.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/infrastructure/metrics"
)

// recordFileExt is appended to the escaped player id to form the file name.
const recordFileExt = ".json"

// Known top-level keys of the record file. Everything else belongs to other
// subsystems and is carried through a resave untouched.
const (
	fieldID   = "id"
	fieldName = "name"
	fieldBank = "bank_balance"
	fieldCash = "cash_balance"
)

// Defaults holds the values used to initialize a first-time record.
type Defaults struct {
	StartingBankBalance decimal.Decimal
}

// RecordRepository is a file-per-player implementation of usecase.ColdStore.
type RecordRepository struct {
	dir         string
	defaults    Defaults
	retrier     *Retrier
	saveTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewRecordRepository creates the repository, creating dir if needed.
func NewRecordRepository(dir string, defaults Defaults, retrier *Retrier, logger zerolog.Logger, m *metrics.Metrics) (*RecordRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	return &RecordRepository{
		dir:      dir,
		defaults: defaults,
		retrier:  retrier,
		logger:   logger,
		metrics:  m,
	}, nil
}

// WithSaveTimeout bounds how long a single Save may spend retrying. Zero
// leaves saves bounded only by the retrier's own budget.
func (r *RecordRepository) WithSaveTimeout(d time.Duration) *RecordRepository {
	r.saveTimeout = d
	return r
}

// LoadOrInit returns the stored record for id, or initializes and persists a
// new one with default values if none exists. Initialization is idempotent:
// two concurrent first loads of the same id agree on a single record.
func (r *RecordRepository) LoadOrInit(ctx context.Context, id, nameHint string) (*domain.PlayerRecord, error) {
	if id == "" {
		return nil, domain.ErrInvalidID
	}

	start := time.Now()
	defer func() {
		r.metrics.ObserveColdLoad(time.Since(start).Seconds())
	}()

	path := r.path(id)

	// Two passes: if the init loses the create race, the winner's record is
	// on disk and the re-read picks it up.
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err == nil {
			rec, err := decodeRecord(data)
			if err != nil {
				r.metrics.RecordColdIOFailure("load")
				return nil, fmt.Errorf("decode player record %s: %w", id, err)
			}
			rec.ID = id
			return rec, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			r.metrics.RecordColdIOFailure("load")
			return nil, fmt.Errorf("load player record %s: %w", id, err)
		}

		rec := domain.NewPlayerRecord(id, nameHint, r.defaults.StartingBankBalance)

		created, err := r.initRecord(rec)
		if err != nil {
			r.metrics.RecordColdIOFailure("init")
			return nil, fmt.Errorf("initialize player record %s: %w", id, err)
		}
		if created {
			r.logger.Debug().Str("player_id", id).Msg("initialized default record")
			return rec, nil
		}
	}

	return nil, fmt.Errorf("initialize player record %s: %w", id, fs.ErrExist)
}

// Load returns the stored record for id, or domain.ErrRecordNotFound.
func (r *RecordRepository) Load(ctx context.Context, id string) (*domain.PlayerRecord, error) {
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		r.metrics.RecordColdIOFailure("load")
		return nil, fmt.Errorf("load player record %s: %w", id, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode player record %s: %w", id, err)
	}
	rec.ID = id

	return rec, nil
}

// Save writes the full record atomically, retrying transient failures.
// On failure the previous on-disk record stays intact and the error is
// returned so the caller can retry with its in-memory copy.
func (r *RecordRepository) Save(ctx context.Context, rec *domain.PlayerRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidID
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode player record %s: %w", rec.ID, err)
	}

	if r.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.saveTimeout)
		defer cancel()
	}

	start := time.Now()

	err = r.retrier.Retry(ctx, func() error {
		return r.writeAtomic(r.path(rec.ID), data)
	})

	r.metrics.ObserveColdSave(time.Since(start).Seconds())

	if err != nil {
		r.metrics.RecordColdIOFailure("save")
		r.logger.Error().
			Err(err).
			Str("player_id", rec.ID).
			Msg("failed to persist player record, in-memory state is ahead of disk")

		return fmt.Errorf("save player record %s: %w", rec.ID, err)
	}

	return nil
}

// Exists reports whether a record file exists for id.
func (r *RecordRepository) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, domain.ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat player record %s: %w", id, err)
	}

	return true, nil
}

func (r *RecordRepository) path(id string) string {
	// PathEscape keeps arbitrary ids filesystem-safe and collision-free.
	return filepath.Join(r.dir, url.PathEscape(id)+recordFileExt)
}

// initRecord writes a brand-new record file. Returns false when another
// writer created the file first. Link is used instead of Rename because it
// fails on an existing destination, which is what makes the init idempotent.
func (r *RecordRepository) initRecord(rec *domain.PlayerRecord) (bool, error) {
	data, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(r.dir, ".init-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	if err := os.Link(tmpName, r.path(rec.ID)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *RecordRepository) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(r.dir, ".save-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}

// decodeRecord parses a record file, diverting unknown top-level fields into
// Attributes so a later save carries them through byte-for-byte.
func decodeRecord(data []byte) (*domain.PlayerRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	rec := &domain.PlayerRecord{}

	if raw, ok := fields[fieldID]; ok {
		if err := json.Unmarshal(raw, &rec.ID); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldID, err)
		}
	}
	if raw, ok := fields[fieldName]; ok {
		if err := json.Unmarshal(raw, &rec.Name); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldName, err)
		}
	}

	var bank, cash decimal.Decimal
	if raw, ok := fields[fieldBank]; ok {
		if err := json.Unmarshal(raw, &bank); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldBank, err)
		}
	}
	if raw, ok := fields[fieldCash]; ok {
		if err := json.Unmarshal(raw, &cash); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldCash, err)
		}
	}

	// SetBalance clamps hand-edited negative values back to zero.
	rec.SetBalance(domain.LaneBank, bank)
	rec.SetBalance(domain.LaneCash, cash)

	delete(fields, fieldID)
	delete(fields, fieldName)
	delete(fields, fieldBank)
	delete(fields, fieldCash)
	if len(fields) > 0 {
		rec.Attributes = fields
	}

	return rec, nil
}

// encodeRecord serializes a record, merging Attributes back in alongside the
// ledger-owned fields.
func encodeRecord(rec *domain.PlayerRecord) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(rec.Attributes)+4)
	for k, v := range rec.Attributes {
		fields[k] = v
	}

	var err error
	if fields[fieldID], err = json.Marshal(rec.ID); err != nil {
		return nil, err
	}
	if fields[fieldName], err = json.Marshal(rec.Name); err != nil {
		return nil, err
	}
	if fields[fieldBank], err = json.Marshal(rec.BankBalance); err != nil {
		return nil, err
	}
	if fields[fieldCash], err = json.Marshal(rec.CashBalance); err != nil {
		return nil, err
	}

	return json.MarshalIndent(fields, "", "  ")
}
