package store

import (
	"context"
	"sync"

	"motorsync/internal/telemetry"
)

// MemoryStore is an in-memory SampleStore used by tests and print-only
// runs. Same contract as SQLiteStore: monotonic ids, consistent
// snapshots under concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []telemetry.Reading
	states   map[string]telemetry.MotorState
	nextID   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]telemetry.MotorState), nextID: 1}
}

// Append assigns the next id and records the reading and state snapshot.
func (m *MemoryStore) Append(_ context.Context, r telemetry.Reading, st telemetry.MotorState) (telemetry.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	r.Timestamp = r.Timestamp.UTC()
	m.readings = append(m.readings, r)
	m.states[r.MachineID] = st
	return r, nil
}

// ListRecent returns up to limit readings, most recent first.
func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]telemetry.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.readings)
	if limit > n {
		limit = n
	}
	out := make([]telemetry.Reading, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.readings[i])
	}
	return out, nil
}

// DeleteAll clears all readings and returns the count removed.
func (m *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.readings))
	m.readings = nil
	return n, nil
}

// LoadState returns the last snapshot for a machine.
func (m *MemoryStore) LoadState(_ context.Context, machineID string) (telemetry.MotorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[machineID]
	if !ok {
		return telemetry.MotorState{}, ErrNotFound
	}
	return st, nil
}
