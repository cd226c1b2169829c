// Package testutil wires the real file-backed stack into an in-process HTTP
// server for integration tests. No external services are required; every
// environment lives in its own temporary directory.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	adaptershttp "github.com/iho/playerbank/internal/adapter/http"
	"github.com/iho/playerbank/internal/adapter/http/handler"
	filerepo "github.com/iho/playerbank/internal/adapter/repository/file"
	"github.com/iho/playerbank/internal/infrastructure/lockmap"
	"github.com/iho/playerbank/internal/session"
	"github.com/iho/playerbank/internal/usecase"
)

// Env bundles the real stack behind an httptest server.
type Env struct {
	DataDir  string
	Store    *filerepo.RecordRepository
	Registry *session.Registry
	Ledger   *usecase.LedgerUseCase
	Transfer *usecase.TransferUseCase
	Server   *httptest.Server

	t *testing.T
}

// Options tweaks environment defaults.
type Options struct {
	StartingBank   string // default "100"
	RoundingPlaces int32  // default 2
}

// NewEnv builds a full environment on a fresh temp directory. The server is
// closed automatically when the test finishes.
func NewEnv(t *testing.T, opts Options) *Env {
	t.Helper()

	if opts.StartingBank == "" {
		opts.StartingBank = "100"
	}
	if opts.RoundingPlaces == 0 {
		opts.RoundingPlaces = 2
	}

	logger := zerolog.Nop()
	dir := t.TempDir()

	store, err := filerepo.NewRecordRepository(
		dir,
		filerepo.Defaults{StartingBankBalance: decimal.RequireFromString(opts.StartingBank)},
		filerepo.NewRetrier(logger),
		logger,
		nil,
	)
	if err != nil {
		t.Fatalf("failed to create record repository: %v", err)
	}

	locks := lockmap.New()
	registry := session.NewRegistry(store, locks, logger, nil)
	ledgerUC := usecase.NewLedgerUseCase(store, registry, locks, opts.RoundingPlaces, logger, nil)
	transferUC := usecase.NewTransferUseCase(ledgerUC, filerepo.NewULIDGenerator(), logger, nil)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC),
		TransferHandler: handler.NewTransferHandler(transferUC),
		SessionHandler:  handler.NewSessionHandler(registry),
		HealthHandler:   handler.NewHealthHandler(dir, nil),
		Logger:          logger,
		IdempotencyTTL:  time.Hour,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &Env{
		DataDir:  dir,
		Store:    store,
		Registry: registry,
		Ledger:   ledgerUC,
		Transfer: transferUC,
		Server:   server,
		t:        t,
	}
}

// RecordPath returns the on-disk path of one player's record file.
func (e *Env) RecordPath(id string) string {
	return filepath.Join(e.DataDir, id+".json")
}

// ReadRawRecord returns the raw JSON currently stored for a player.
func (e *Env) ReadRawRecord(id string) map[string]json.RawMessage {
	e.t.Helper()

	data, err := os.ReadFile(e.RecordPath(id))
	if err != nil {
		e.t.Fatalf("failed to read record %s: %v", id, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		e.t.Fatalf("failed to decode record %s: %v", id, err)
	}
	return fields
}

// DoJSON issues a request against the test server and decodes the response
// body into out when out is non-nil.
func (e *Env) DoJSON(method, path string, body any, out any) *http.Response {
	e.t.Helper()

	var req *http.Request
	var err error
	if body != nil {
		encoded, merr := json.Marshal(body)
		if merr != nil {
			e.t.Fatalf("failed to encode request: %v", merr)
		}
		req, err = http.NewRequest(method, e.Server.URL+path, bytes.NewReader(encoded))
	} else {
		req, err = http.NewRequest(method, e.Server.URL+path, nil)
	}
	if err != nil {
		e.t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.Server.Client().Do(req)
	if err != nil {
		e.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			e.t.Fatalf("failed to decode response: %v", err)
		}
	}

	return resp
}
