// Package lockmap provides per-key mutual exclusion with lazily created
// locks that are evicted once nothing holds or waits on them.
package lockmap

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map serializes access per key. The zero value is not usable; use New.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key, creating it on first use.
func (m *Map) Lock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. The lock is removed from the map when no
// other goroutine holds or waits for it.
func (m *Map) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("lockmap: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}

// Len reports how many keys currently have a live lock.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
