package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and local development. It
// honors the same conditional-write contract as the network backends.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string]Record)}
}

func (m *Memory) Get(_ context.Context, table, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tables[table][key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneRecord(rec)
	return &cp, nil
}

func (m *Memory) Insert(_ context.Context, table string, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tables[table] == nil {
		m.tables[table] = make(map[string]Record)
	}
	if _, ok := m.tables[table][rec.Key]; ok {
		return ErrAlreadyExists
	}
	m.tables[table][rec.Key] = cloneRecord(*rec)
	return nil
}

func (m *Memory) UpdateIfStatus(_ context.Context, table, key, expectedStatus string, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.tables[table][key]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expectedStatus {
		return ErrConflict
	}
	m.tables[table][key] = cloneRecord(*rec)
	return nil
}

func (m *Memory) Scan(_ context.Context, table string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]*Record, 0, len(m.tables[table]))
	for _, rec := range m.tables[table] {
		cp := cloneRecord(rec)
		recs = append(recs, &cp)
	}
	return recs, nil
}

func cloneRecord(rec Record) Record {
	doc := make([]byte, len(rec.Doc))
	copy(doc, rec.Doc)
	rec.Doc = doc
	return rec
}
