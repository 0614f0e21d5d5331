package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/persons/internal/core"
)

// Memory is a core.Gateway held in process memory. It keeps the same
// ordering and merge semantics as Postgres and is meant for local runs and
// tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]core.Person
}

var _ core.Gateway = (*Memory)(nil)

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]core.Person)}
}

func (m *Memory) Create(ctx context.Context, id string, p core.Person) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; ok {
		return fmt.Errorf("person %s: %w", id, core.ErrAlreadyExists)
	}
	m.docs[id] = p
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (core.Person, error) {
	if err := ctx.Err(); err != nil {
		return core.Person{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.docs[id]
	if !ok {
		return core.Person{}, fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}
	return p, nil
}

// UpdateFields merges fields into the stored person the way a JSON object
// merge would.
func (m *Memory) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}

	merged, err := mergePerson(p, fields)
	if err != nil {
		return fmt.Errorf("person %s: %w", id, err)
	}
	m.docs[id] = merged
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("person %s: %w", id, core.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

// List returns persons in ID order.
func (m *Memory) List(ctx context.Context, offset, limit int) ([]core.StoredPerson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset < 0 {
		offset = 0
	}
	out := make([]core.StoredPerson, 0)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, core.StoredPerson{ID: ids[i], Person: m.docs[ids[i]]})
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func mergePerson(p core.Person, fields map[string]any) (core.Person, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return p, err
	}
	var obj map[string]any
	if err := json.Unmarshal(doc, &obj); err != nil {
		return p, err
	}
	for k, v := range fields {
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return p, err
	}

	var out core.Person
	if err := json.Unmarshal(merged, &out); err != nil {
		return p, fmt.Errorf("merge fields: %w", err)
	}
	return out, nil
}
