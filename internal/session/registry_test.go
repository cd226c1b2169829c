package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/infrastructure/lockmap"
	"github.com/iho/playerbank/internal/session"
	"github.com/iho/playerbank/internal/usecase"
	"github.com/iho/playerbank/internal/usecase/mocks"
)

func TestRegistry_AttachPinsSingleInstance(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	rec1, err := reg.Attach(ctx, "A", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec2, err := reg.Attach(ctx, "A", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec1 != rec2 {
		t.Error("second attach must return the same pinned instance")
	}
	if !reg.IsActive("A") {
		t.Error("expected player to be active after attach")
	}
	if reg.Count() != 1 {
		t.Errorf("expected 1 session, got %d", reg.Count())
	}
}

func TestRegistry_ConcurrentAttachAgreesOnOneRecord(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	const goroutines = 20
	records := make([]*domain.PlayerRecord, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], _ = reg.Attach(ctx, "A", "Alice")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if records[i] != records[0] {
			t.Fatal("concurrent attaches pinned more than one instance")
		}
	}
}

func TestRegistry_DetachPersistsBeforeEviction(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	rec, err := reg.Attach(ctx, "A", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.SetBalance(domain.LaneBank, decimal.NewFromInt(777))

	if err := reg.Detach(ctx, "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reg.IsActive("A") {
		t.Error("expected player to be inactive after detach")
	}

	saved, ok := store.Stored("A")
	if !ok {
		t.Fatal("expected record to be persisted on detach")
	}
	if !saved.BankBalance.Equal(decimal.NewFromInt(777)) {
		t.Errorf("expected persisted balance 777, got %s", saved.BankBalance)
	}
}

func TestRegistry_DetachFailureKeepsRecordPinned(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	if _, err := reg.Attach(ctx, "A", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ioErr := errors.New("disk full")
	store.SaveFunc = func(ctx context.Context, record *domain.PlayerRecord) error {
		return ioErr
	}

	if err := reg.Detach(ctx, "A"); !errors.Is(err, ioErr) {
		t.Fatalf("expected io error, got %v", err)
	}

	// The in-memory record stays authoritative until a save succeeds.
	if !reg.IsActive("A") {
		t.Error("record must stay pinned after failed persist")
	}

	store.SaveFunc = nil
	if err := reg.Detach(ctx, "A"); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if reg.IsActive("A") {
		t.Error("expected eviction after successful retry")
	}
}

func TestRegistry_DetachUnknownIsNoop(t *testing.T) {
	reg := session.NewRegistry(mocks.NewMockColdStore(), lockmap.New(), zerolog.Nop(), nil)

	if err := reg.Detach(context.Background(), "ghost"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistry_DetachAll(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		if _, err := reg.Attach(ctx, id, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := reg.DetachAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("expected all sessions gone, got %d", reg.Count())
	}

	for _, id := range []string{"A", "B", "C"} {
		if _, ok := store.Stored(id); !ok {
			t.Errorf("expected %s persisted by DetachAll", id)
		}
	}
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	store := mocks.NewMockColdStore()
	reg := session.NewRegistry(store, lockmap.New(), zerolog.Nop(), nil)
	ctx := context.Background()

	rec, err := reg.Attach(ctx, "A", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, ok := reg.Snapshot("A")
	if !ok {
		t.Fatal("expected snapshot")
	}

	snap.SetBalance(domain.LaneBank, decimal.NewFromInt(1))

	if rec.BankBalance.Equal(decimal.NewFromInt(1)) {
		t.Error("mutating a snapshot must not touch the pinned record")
	}
}

func TestRegistry_DetachDoesNotLoseConcurrentModify(t *testing.T) {
	store := mocks.NewMockColdStore()
	locks := lockmap.New()
	reg := session.NewRegistry(store, locks, zerolog.Nop(), nil)
	ledger := usecase.NewLedgerUseCase(store, reg, locks, usecase.DefaultRoundingPlaces, zerolog.Nop(), nil)
	ctx := context.Background()

	if _, err := reg.Attach(ctx, "A", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saveStarted := make(chan struct{})
	releaseSave := make(chan struct{})
	var blockOnce sync.Once
	store.SaveFunc = func(ctx context.Context, rec *domain.PlayerRecord) error {
		blockOnce.Do(func() {
			close(saveStarted)
			<-releaseSave
		})
		store.Seed(rec.Clone())
		return nil
	}

	detachDone := make(chan error, 1)
	go func() { detachDone <- reg.Detach(ctx, "A") }()
	<-saveStarted

	// The detach is mid-save and holds the identity lock. A modify issued
	// now must either land before the save or resolve cold after the
	// eviction; it cannot be acknowledged and then discarded.
	modifyDone := make(chan error, 1)
	go func() {
		_, err := ledger.Modify(ctx, "A", domain.LaneBank, decimal.NewFromInt(50))
		modifyDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	close(releaseSave)

	if err := <-detachDone; err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if err := <-modifyDone; err != nil {
		t.Fatalf("modify failed: %v", err)
	}

	got, err := ledger.Balance(ctx, "A", domain.LaneBank)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("balance after detach = %s, want 150", got)
	}

	stored, ok := store.Stored("A")
	if !ok {
		t.Fatal("expected record persisted")
	}
	if !stored.BankBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("persisted balance = %s, want 150", stored.BankBalance)
	}
}

func TestRegistry_ActiveReadsSynchronizedWithWrites(t *testing.T) {
	store := mocks.NewMockColdStore()
	locks := lockmap.New()
	reg := session.NewRegistry(store, locks, zerolog.Nop(), nil)
	ledger := usecase.NewLedgerUseCase(store, reg, locks, usecase.DefaultRoundingPlaces, zerolog.Nop(), nil)
	ctx := context.Background()

	if _, err := reg.Attach(ctx, "A", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const writes = 50
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			if _, err := ledger.Modify(ctx, "A", domain.LaneBank, decimal.NewFromInt(1)); err != nil {
				t.Errorf("modify: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			if _, err := ledger.Balance(ctx, "A", domain.LaneBank); err != nil {
				t.Errorf("balance: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			reg.Snapshot("A")
		}
	}()
	wg.Wait()

	got, err := ledger.Balance(ctx, "A", domain.LaneBank)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := decimal.NewFromInt(100 + writes)
	if !got.Equal(want) {
		t.Errorf("balance = %s, want %s", got, want)
	}
}
