package store

import (
	"context"
	"sync"
	"time"

	"stock-monitor/internal/models"
)

type stateKey struct {
	ticker string
	kind   models.CandidateKind
}

// MemoryStore is an in-memory StateStore. Used for dry runs and tests;
// state does not survive the process.
type MemoryStore struct {
	mu     sync.Mutex
	states map[stateKey]time.Time
	log    []models.FiredAlert
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[stateKey]time.Time)}
}

// Get returns the state for (ticker, kind), or nil when none exists.
func (m *MemoryStore) Get(ctx context.Context, ticker string, kind models.CandidateKind) (*models.AlertState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.states[stateKey{ticker, kind}]
	if !ok {
		return nil, nil
	}
	return &models.AlertState{Ticker: ticker, Kind: kind, LastAlert: last}, nil
}

// CompareAndSwap records next iff the stored value still equals prev.
func (m *MemoryStore) CompareAndSwap(ctx context.Context, ticker string, kind models.CandidateKind, prev *time.Time, next time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey{ticker, kind}
	current, exists := m.states[key]

	if prev == nil {
		if exists {
			return false, nil
		}
	} else if !exists || !current.Equal(*prev) {
		return false, nil
	}

	m.states[key] = next
	return true, nil
}

// RecordAlert appends a fired alert to the in-memory history.
func (m *MemoryStore) RecordAlert(ctx context.Context, alert models.FiredAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, alert)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
