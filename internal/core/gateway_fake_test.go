package core

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeGateway is an in-memory Gateway with failure injection.
type fakeGateway struct {
	mu   sync.Mutex
	docs map[string]Person

	// failOn makes Create fail for persons with this email.
	failOn  string
	failErr error
	// onCreate runs after every successful Create.
	onCreate func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{docs: make(map[string]Person)}
}

func (g *fakeGateway) Create(_ context.Context, id string, p Person) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOn != "" && p.Email == g.failOn {
		if g.failErr != nil {
			return g.failErr
		}
		return errors.New("write rejected")
	}
	if _, ok := g.docs[id]; ok {
		return ErrAlreadyExists
	}
	g.docs[id] = p
	if g.onCreate != nil {
		g.onCreate()
	}
	return nil
}

func (g *fakeGateway) Get(_ context.Context, id string) (Person, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.docs[id]
	if !ok {
		return Person{}, ErrNotFound
	}
	return p, nil
}

func (g *fakeGateway) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case FieldName:
			p.Name = v.(string)
		case FieldEmail:
			p.Email = v.(string)
		case FieldAge:
			p.Age = v.(int)
		case FieldStatus:
			p.Status = v.(bool)
		}
	}
	g.docs[id] = p
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.docs[id]; !ok {
		return ErrNotFound
	}
	delete(g.docs, id)
	return nil
}

func (g *fakeGateway) List(_ context.Context, offset, limit int) ([]StoredPerson, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.docs))
	for id := range g.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []StoredPerson
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, StoredPerson{ID: ids[i], Person: g.docs[ids[i]]})
	}
	return out, nil
}

func (g *fakeGateway) Count(context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(len(g.docs)), nil
}

func (g *fakeGateway) Ping(context.Context) error { return nil }

func (g *fakeGateway) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.docs)
}
