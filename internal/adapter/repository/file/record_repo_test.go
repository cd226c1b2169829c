package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
)

func newTestRepo(t *testing.T) *RecordRepository {
	t.Helper()

	repo, err := NewRecordRepository(
		t.TempDir(),
		Defaults{StartingBankBalance: decimal.NewFromInt(100)},
		newTestRetrier(),
		zerolog.Nop(),
		nil,
	)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo
}

func TestLoadOrInitCreatesDefaultRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.LoadOrInit(ctx, "player-1", "Steve")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID != "player-1" {
		t.Errorf("expected id player-1, got %s", rec.ID)
	}
	if rec.Name != "Steve" {
		t.Errorf("expected name Steve, got %s", rec.Name)
	}
	if !rec.BankBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected starting bank balance 100, got %s", rec.BankBalance)
	}
	if !rec.CashBalance.IsZero() {
		t.Errorf("expected zero cash, got %s", rec.CashBalance)
	}

	exists, err := repo.Exists(ctx, "player-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected record file to exist after init")
	}
}

func TestLoadOrInitIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const goroutines = 10

	var wg sync.WaitGroup
	records := make([]*domain.PlayerRecord, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = repo.LoadOrInit(ctx, "player-1", "Steve")
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if !records[i].BankBalance.Equal(records[0].BankBalance) {
			t.Errorf("goroutine %d: diverging record: %s vs %s",
				i, records[i].BankBalance, records[0].BankBalance)
		}
	}

	// Exactly one record file, no leftover temp files.
	entries, err := os.ReadDir(repo.dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected exactly one file, got %v", names)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := domain.NewPlayerRecord("player-1", "Steve", decimal.NewFromInt(100))
	rec.SetBalance(domain.LaneBank, decimal.RequireFromString("42.75"))
	rec.SetBalance(domain.LaneCash, decimal.RequireFromString("13.5"))
	rec.Attributes = map[string]json.RawMessage{
		"role": json.RawMessage(`"knight"`),
		"rpg":  json.RawMessage(`{"level":7,"xp":1234,"skills":["mining","archery"]}`),
	}

	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := repo.Load(ctx, "player-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Name != rec.Name {
		t.Errorf("expected name %q, got %q", rec.Name, loaded.Name)
	}
	if !loaded.BankBalance.Equal(rec.BankBalance) {
		t.Errorf("expected bank %s, got %s", rec.BankBalance, loaded.BankBalance)
	}
	if !loaded.CashBalance.Equal(rec.CashBalance) {
		t.Errorf("expected cash %s, got %s", rec.CashBalance, loaded.CashBalance)
	}
	if string(loaded.Attributes["role"]) != `"knight"` {
		t.Errorf("role attribute not preserved: %s", loaded.Attributes["role"])
	}
	if string(loaded.Attributes["rpg"]) != `{"level":7,"xp":1234,"skills":["mining","archery"]}` {
		t.Errorf("rpg attribute not preserved byte-for-byte: %s", loaded.Attributes["rpg"])
	}
}

func TestSavePreservesForeignFieldsAcrossLedgerOnlySave(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Simulate another subsystem having written extra fields directly.
	raw := []byte(`{
  "id": "player-1",
  "name": "Steve",
  "bank_balance": "20",
  "cash_balance": "0",
  "quests": {"dragon": "done"},
  "honor": 99
}`)
	path := filepath.Join(repo.dir, "player-1.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	rec, err := repo.Load(ctx, "player-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	rec.SetBalance(domain.LaneBank, decimal.NewFromInt(25))
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := repo.Load(ctx, "player-1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if string(reloaded.Attributes["quests"]) != `{"dragon": "done"}` {
		t.Errorf("quests field lost or altered: %s", reloaded.Attributes["quests"])
	}
	if string(reloaded.Attributes["honor"]) != `99` {
		t.Errorf("honor field lost or altered: %s", reloaded.Attributes["honor"])
	}
	if !reloaded.BankBalance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected bank 25, got %s", reloaded.BankBalance)
	}
}

func TestLoadClampsNegativeBalancesOnDisk(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	raw := []byte(`{"id":"player-1","name":"Steve","bank_balance":"-5","cash_balance":"3"}`)
	if err := os.WriteFile(filepath.Join(repo.dir, "player-1.json"), raw, 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	rec, err := repo.Load(ctx, "player-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !rec.BankBalance.IsZero() {
		t.Errorf("expected negative bank balance clamped to 0, got %s", rec.BankBalance)
	}
	if !rec.CashBalance.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected cash 3, got %s", rec.CashBalance)
	}
}

func TestLoadMissingRecord(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background(), "nobody")
	if err != domain.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSaveFailureLeavesOldRecordIntact(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.LoadOrInit(ctx, "player-1", "Steve")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Removing the directory makes every subsequent write fail.
	if err := os.RemoveAll(repo.dir); err != nil {
		t.Fatalf("failed to remove dir: %v", err)
	}

	rec.SetBalance(domain.LaneBank, decimal.NewFromInt(999))
	if err := repo.Save(ctx, rec); err == nil {
		t.Fatal("expected save to fail")
	}
}

func TestExistsWithoutMaterializing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected no record for unknown id")
	}
}

func TestPathEscapesUnsafeIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.LoadOrInit(ctx, "weird/../id", "Evil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "weird/../id" {
		t.Errorf("id changed during round trip: %s", rec.ID)
	}

	// The record file must land inside the data dir.
	entries, err := os.ReadDir(repo.dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one file inside the data dir, got %d", len(entries))
	}
}

func TestSaveWithTimeoutConfigured(t *testing.T) {
	repo := newTestRepo(t).WithSaveTimeout(time.Second)
	ctx := context.Background()

	rec := domain.NewPlayerRecord("player-t", "Steve", decimal.NewFromInt(100))
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := repo.Load(ctx, "player-t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded.BankBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected balance %s", loaded.BankBalance)
	}
}
