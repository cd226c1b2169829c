package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/playerbank/internal/domain"
)

// MockColdStore is an in-memory mock of usecase.ColdStore.
type MockColdStore struct {
	mu       sync.RWMutex
	records  map[string]*domain.PlayerRecord
	Defaults decimal.Decimal

	LoadOrInitFunc func(ctx context.Context, id, nameHint string) (*domain.PlayerRecord, error)
	SaveFunc       func(ctx context.Context, record *domain.PlayerRecord) error
	ExistsFunc     func(ctx context.Context, id string) (bool, error)

	SaveCalls int
}

func NewMockColdStore() *MockColdStore {
	return &MockColdStore{
		records:  make(map[string]*domain.PlayerRecord),
		Defaults: decimal.NewFromInt(100),
	}
}

func (m *MockColdStore) LoadOrInit(ctx context.Context, id, nameHint string) (*domain.PlayerRecord, error) {
	if m.LoadOrInitFunc != nil {
		return m.LoadOrInitFunc(ctx, id, nameHint)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		return rec.Clone(), nil
	}
	rec := domain.NewPlayerRecord(id, nameHint, m.Defaults)
	m.records[id] = rec.Clone()
	return rec, nil
}

func (m *MockColdStore) Save(ctx context.Context, record *domain.PlayerRecord) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record.Clone()
	return nil
}

func (m *MockColdStore) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok, nil
}

// Stored returns the saved record for id, for assertions.
func (m *MockColdStore) Stored(id string) (*domain.PlayerRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Seed places a record in the store directly.
func (m *MockColdStore) Seed(rec *domain.PlayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec.Clone()
}

// MockActiveRegistry is a map-backed mock of usecase.ActiveRegistry.
type MockActiveRegistry struct {
	mu      sync.RWMutex
	records map[string]*domain.PlayerRecord

	IsActiveFunc     func(id string) bool
	ActiveRecordFunc func(id string) (*domain.PlayerRecord, bool)
}

func NewMockActiveRegistry() *MockActiveRegistry {
	return &MockActiveRegistry{records: make(map[string]*domain.PlayerRecord)}
}

func (m *MockActiveRegistry) IsActive(id string) bool {
	if m.IsActiveFunc != nil {
		return m.IsActiveFunc(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok
}

func (m *MockActiveRegistry) ActiveRecord(id string) (*domain.PlayerRecord, bool) {
	if m.ActiveRecordFunc != nil {
		return m.ActiveRecordFunc(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Attach pins a record as active.
func (m *MockActiveRegistry) Attach(rec *domain.PlayerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
}

// Detach removes a record.
func (m *MockActiveRegistry) Detach(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
}

// MockLedger is a func-field mock of usecase.Ledger.
type MockLedger struct {
	BalanceFunc func(ctx context.Context, id string, lane domain.Lane) (decimal.Decimal, error)
	ModifyFunc  func(ctx context.Context, id string, lane domain.Lane, delta decimal.Decimal) (decimal.Decimal, error)
	SetFunc     func(ctx context.Context, id string, lane domain.Lane, value decimal.Decimal) (decimal.Decimal, error)
}

func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

func (m *MockLedger) Balance(ctx context.Context, id string, lane domain.Lane) (decimal.Decimal, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, id, lane)
	}
	return decimal.Zero, nil
}

func (m *MockLedger) Modify(ctx context.Context, id string, lane domain.Lane, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.ModifyFunc != nil {
		return m.ModifyFunc(ctx, id, lane, delta)
	}
	return delta, nil
}

func (m *MockLedger) Set(ctx context.Context, id string, lane domain.Lane, value decimal.Decimal) (decimal.Decimal, error) {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, id, lane, value)
	}
	return value, nil
}

// MockIDGenerator is a mock of usecase.IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "test-id"
}

// MockIdempotencyStore is an in-memory mock of usecase.IdempotencyStore.
type MockIdempotencyStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{values: make(map[string][]byte)}
}

func (m *MockIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok {
		return false, existing, nil
	}
	m.values[key] = nil
	return true, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
