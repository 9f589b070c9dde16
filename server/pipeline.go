package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNoStatuses = errors.New("no statuses defined")

// Pipeline owns the ordered status sequence. Order is ascending id; the
// sequence is cyclic for navigation, so the last status advances back to
// the first.
type Pipeline struct {
	store Storage
}

func NewPipeline(store Storage) *Pipeline { return &Pipeline{store: store} }

func (p *Pipeline) List(ctx context.Context) ([]Status, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	sortStatuses(statuses)
	return statuses, nil
}

func (p *Pipeline) Get(ctx context.Context, id int64) (Status, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	for _, st := range statuses {
		if st.ID == id {
			return st, nil
		}
	}
	return Status{}, fmt.Errorf("status %d: %w", id, ErrNotFound)
}

// Add appends a status with a fresh id. An empty category is derived from
// the name so that admin-created terminal statuses classify correctly.
func (p *Pipeline) Add(ctx context.Context, name string, responsible Role, category Category) (Status, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Status{}, fmt.Errorf("status name: %w", ErrValidation)
	}
	switch responsible {
	case RoleProducer, RoleDesigner, RoleNobody:
	default:
		return Status{}, fmt.Errorf("responsible %q: %w", responsible, ErrValidation)
	}
	if category == "" {
		category = classifyName(name)
	}
	switch category {
	case CategoryActive, CategoryPublished, CategoryBanned:
	default:
		return Status{}, fmt.Errorf("category %q: %w", category, ErrValidation)
	}
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	var maxID int64
	for _, st := range statuses {
		if st.ID > maxID {
			maxID = st.ID
		}
	}
	st := Status{ID: maxID + 1, Name: name, Responsible: responsible, Category: category}
	statuses = append(statuses, st)
	if err := p.store.SaveStatuses(ctx, statuses); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Remove deletes a status. Projects referencing it keep their dangling
// status_id; readers render those as unknown.
func (p *Pipeline) Remove(ctx context.Context, id int64) error {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return err
	}
	kept := statuses[:0]
	for _, st := range statuses {
		if st.ID != id {
			kept = append(kept, st)
		}
	}
	if len(kept) == len(statuses) {
		return fmt.Errorf("status %d: %w", id, ErrNotFound)
	}
	return p.store.SaveStatuses(ctx, kept)
}

// Successor returns the next status by id, wrapping from the last to the
// first. An id not present in the pipeline resolves to the first status.
func (p *Pipeline) Successor(ctx context.Context, id int64) (Status, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	st, ok := nextOf(statuses, id)
	if !ok {
		return Status{}, ErrNoStatuses
	}
	return st, nil
}

// Predecessor is the cyclic inverse of Successor.
func (p *Pipeline) Predecessor(ctx context.Context, id int64) (Status, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	st, ok := prevOf(statuses, id)
	if !ok {
		return Status{}, ErrNoStatuses
	}
	return st, nil
}

// Earliest is the minimum-id status, the entry point for new projects.
func (p *Pipeline) Earliest(ctx context.Context) (Status, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	if len(statuses) == 0 {
		return Status{}, ErrNoStatuses
	}
	sortStatuses(statuses)
	return statuses[0], nil
}

// IsArchive reports whether the status is terminal. A dangling id is not
// archival; the project just sits outside the pipeline.
func (p *Pipeline) IsArchive(ctx context.Context, id int64) (bool, error) {
	statuses, err := p.store.Statuses(ctx)
	if err != nil {
		return false, err
	}
	for _, st := range statuses {
		if st.ID == id {
			return st.IsArchive(), nil
		}
	}
	return false, nil
}

func sortStatuses(statuses []Status) {
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
}

func nextOf(statuses []Status, id int64) (Status, bool) {
	if len(statuses) == 0 {
		return Status{}, false
	}
	sortStatuses(statuses)
	for i, st := range statuses {
		if st.ID == id {
			if i+1 < len(statuses) {
				return statuses[i+1], true
			}
			return statuses[0], true
		}
	}
	return statuses[0], true
}

func prevOf(statuses []Status, id int64) (Status, bool) {
	if len(statuses) == 0 {
		return Status{}, false
	}
	sortStatuses(statuses)
	for i, st := range statuses {
		if st.ID == id {
			if i > 0 {
				return statuses[i-1], true
			}
			return statuses[len(statuses)-1], true
		}
	}
	return statuses[0], true
}

// Legacy name heuristic, kept for seeding categories on statuses created
// without one. "Alive" and "Banned" are the historical terminal names.
var (
	publishedKeywords = []string{"published", "released"}
	bannedKeywords    = []string{"blocked", "banned"}
)

func classifyName(name string) Category {
	lower := strings.ToLower(name)
	if strings.EqualFold(name, "Alive") {
		return CategoryPublished
	}
	for _, kw := range publishedKeywords {
		if strings.Contains(lower, kw) {
			return CategoryPublished
		}
	}
	if strings.EqualFold(name, "Banned") {
		return CategoryBanned
	}
	for _, kw := range bannedKeywords {
		if strings.Contains(lower, kw) {
			return CategoryBanned
		}
	}
	return CategoryActive
}
