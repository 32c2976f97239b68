package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/marketlens/ingest/internal/schema"
)

// Memory is an in-process Store used by tests and local runs. It enforces
// the same identifier uniqueness as the postgres driver.
type Memory struct {
	mu   sync.RWMutex
	byID map[schema.Kind]map[string]*Record
	rows map[schema.Kind][]*Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID: make(map[schema.Kind]map[string]*Record),
		rows: make(map[schema.Kind][]*Record),
	}
}

func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID != "" {
		ids, ok := m.byID[rec.Kind]
		if !ok {
			ids = make(map[string]*Record)
			m.byID[rec.Kind] = ids
		}
		if _, exists := ids[rec.ID]; exists {
			return fmt.Errorf("%s %q: %w", rec.Kind, rec.ID, ErrDuplicate)
		}
		ids[rec.ID] = rec
	}

	m.rows[rec.Kind] = append(m.rows[rec.Kind], rec)
	return nil
}

func (m *Memory) Exists(_ context.Context, kind schema.Kind, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byID[kind][id]
	return ok, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Count returns the number of persisted records of a kind.
func (m *Memory) Count(kind schema.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows[kind])
}

// Records returns the persisted records of a kind in insertion order.
func (m *Memory) Records(kind schema.Kind) []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, len(m.rows[kind]))
	copy(out, m.rows[kind])
	return out
}
