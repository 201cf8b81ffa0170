package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Memory keeps records in process. Contents are lost on Close.
type Memory struct {
	mu      sync.Mutex
	next    int64
	records map[int64]core.Record
}

var _ core.Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]core.Record)}
}

// Insert adds a copy of rec and returns its assigned id.
func (m *Memory) Insert(_ context.Context, rec core.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	rec = clone(rec)
	rec.ID = m.next
	m.records[rec.ID] = rec
	return rec.ID, nil
}

// Update replaces the record with the given id.
func (m *Memory) Update(_ context.Context, id int64, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return notFound(id)
	}
	rec = clone(rec)
	rec.ID = id
	m.records[id] = rec
	return nil
}

// ReadAll returns copies of every record ordered by id.
func (m *Memory) ReadAll(_ context.Context) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := slices.Sorted(maps.Keys(m.records))
	out := make([]core.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(m.records[id]))
	}
	return out, nil
}

// Get returns a copy of the record with the given id.
func (m *Memory) Get(_ context.Context, id int64) (core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return core.Record{}, notFound(id)
	}
	return clone(rec), nil
}

// Delete removes the record with the given id.
func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return notFound(id)
	}
	delete(m.records, id)
	return nil
}

// Close drops all records.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[int64]core.Record)
	return nil
}

// clone deep-copies the slice and map fields so callers cannot mutate stored state.
func clone(rec core.Record) core.Record {
	rec.Platforms = slices.Clone(rec.Platforms)
	if rec.Attributes != nil {
		attrs := make(map[string]core.Attributes, len(rec.Attributes))
		for k, a := range rec.Attributes {
			attrs[k] = maps.Clone(a)
		}
		rec.Attributes = attrs
	}
	return rec
}
