package main

import (
	"context"
	"sync"
)

// memStore is an in-memory Storage used by the engine tests. It hands out
// copies so tests never observe aliased slices.
type memStore struct {
	mu         sync.Mutex
	statuses   []Status
	projects   []Project
	characters []Character
	developers []Developer
	users      []User
	checklists []Checklist

	saveErr error // when set, every Save fails with this error
}

func newMemStore() *memStore { return &memStore{} }

func copyStatuses(in []Status) []Status {
	out := make([]Status, len(in))
	copy(out, in)
	return out
}

func copyProjects(in []Project) []Project {
	out := make([]Project, len(in))
	copy(out, in)
	return out
}

func copyCharacters(in []Character) []Character {
	out := make([]Character, len(in))
	copy(out, in)
	return out
}

func copyDevelopers(in []Developer) []Developer {
	out := make([]Developer, len(in))
	copy(out, in)
	return out
}

func copyUsers(in []User) []User {
	out := make([]User, len(in))
	copy(out, in)
	return out
}

func copyChecklists(in []Checklist) []Checklist {
	out := make([]Checklist, len(in))
	for i, cl := range in {
		items := make([]ChecklistItem, len(cl.Items))
		copy(items, cl.Items)
		out[i] = Checklist{StatusID: cl.StatusID, Items: items}
	}
	return out
}

func (m *memStore) Statuses(ctx context.Context) ([]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyStatuses(m.statuses), nil
}

func (m *memStore) SaveStatuses(ctx context.Context, in []Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.statuses = copyStatuses(in)
	return nil
}

func (m *memStore) Projects(ctx context.Context) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyProjects(m.projects), nil
}

func (m *memStore) SaveProjects(ctx context.Context, in []Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.projects = copyProjects(in)
	return nil
}

func (m *memStore) Characters(ctx context.Context) ([]Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCharacters(m.characters), nil
}

func (m *memStore) SaveCharacters(ctx context.Context, in []Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.characters = copyCharacters(in)
	return nil
}

func (m *memStore) Developers(ctx context.Context) ([]Developer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyDevelopers(m.developers), nil
}

func (m *memStore) SaveDevelopers(ctx context.Context, in []Developer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.developers = copyDevelopers(in)
	return nil
}

func (m *memStore) Users(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUsers(m.users), nil
}

func (m *memStore) SaveUsers(ctx context.Context, in []User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.users = copyUsers(in)
	return nil
}

func (m *memStore) Checklists(ctx context.Context) ([]Checklist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyChecklists(m.checklists), nil
}

func (m *memStore) SaveChecklists(ctx context.Context, in []Checklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.checklists = copyChecklists(in)
	return nil
}

// engine bundles the components most tests need, all backed by one memStore.
type engine struct {
	store      *memStore
	pipeline   *Pipeline
	checklists *Checklists
	stats      *Stats
	lifecycle  *Lifecycle
	directory  *Directory
	users      *Users
}

func newTestEngine() *engine {
	st := newMemStore()
	pl := NewPipeline(st)
	cl := NewChecklists(st)
	stats := NewStats(st)
	lc := NewLifecycle(st, pl, cl, stats)
	return &engine{
		store:      st,
		pipeline:   pl,
		checklists: cl,
		stats:      stats,
		lifecycle:  lc,
		directory:  NewDirectory(st, stats),
		users:      NewUsers(st),
	}
}
