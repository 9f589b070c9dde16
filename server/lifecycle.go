package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrChecklistIncomplete = errors.New("checklist incomplete")
)

// Lifecycle owns project mutation. Every move consults the pipeline for
// ordering, the checklist gate for forward moves, and triggers a stats
// recompute for the developers whose assignments changed.
type Lifecycle struct {
	store      Storage
	pipeline   *Pipeline
	checklists *Checklists
	stats      *Stats
}

func NewLifecycle(store Storage, pipeline *Pipeline, checklists *Checklists, stats *Stats) *Lifecycle {
	return &Lifecycle{store: store, pipeline: pipeline, checklists: checklists, stats: stats}
}

// Create places a new project at the earliest pipeline status.
func (l *Lifecycle) Create(ctx context.Context, name string, characterID, developerID int64) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name: %w", ErrValidation)
	}
	if err := l.checkCharacter(ctx, characterID); err != nil {
		return Project{}, err
	}
	if err := l.checkDeveloper(ctx, developerID); err != nil {
		return Project{}, err
	}
	first, err := l.pipeline.Earliest(ctx)
	if err != nil {
		return Project{}, err
	}
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return Project{}, err
	}
	var maxID int64
	for _, p := range projects {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	p := Project{ID: maxID + 1, Name: name, CharacterID: characterID, DeveloperID: developerID, StatusID: first.ID}
	projects = append(projects, p)
	if err := l.store.SaveProjects(ctx, projects); err != nil {
		return Project{}, err
	}
	if err := l.stats.Recompute(ctx, developerID); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (l *Lifecycle) Get(ctx context.Context, id int64) (Project, error) {
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
}

// Advance moves a project to the successor status. The move is refused
// with ErrChecklistIncomplete while the current status has unchecked
// items; the caller presents the checklist and retries via ConfirmAdvance.
// The returned flag reports whether the project landed on an archival
// status.
func (l *Lifecycle) Advance(ctx context.Context, projectID int64) (Project, bool, error) {
	return l.advance(ctx, projectID)
}

// ConfirmAdvance completes a gated advance once the checklist is done.
// The gate is re-checked: items may have been unchecked since the
// checklist was shown.
func (l *Lifecycle) ConfirmAdvance(ctx context.Context, projectID int64) (Project, bool, error) {
	return l.advance(ctx, projectID)
}

func (l *Lifecycle) advance(ctx context.Context, projectID int64) (Project, bool, error) {
	p, err := l.Get(ctx, projectID)
	if err != nil {
		return Project{}, false, err
	}
	complete, err := l.checklists.IsComplete(ctx, p.StatusID)
	if err != nil {
		return Project{}, false, err
	}
	if !complete {
		return Project{}, false, fmt.Errorf("status %d: %w", p.StatusID, ErrChecklistIncomplete)
	}
	next, err := l.pipeline.Successor(ctx, p.StatusID)
	if err != nil {
		return Project{}, false, err
	}
	left := p.StatusID
	p, err = l.setStatus(ctx, projectID, next.ID)
	if err != nil {
		return Project{}, false, err
	}
	// Clear the checklist just left so the next project starts clean.
	if err := l.checklists.Reset(ctx, left); err != nil {
		return Project{}, false, err
	}
	return p, next.IsArchive(), nil
}

// Retreat moves a project to the predecessor status, unconditionally.
func (l *Lifecycle) Retreat(ctx context.Context, projectID int64) (Project, bool, error) {
	p, err := l.Get(ctx, projectID)
	if err != nil {
		return Project{}, false, err
	}
	prev, err := l.pipeline.Predecessor(ctx, p.StatusID)
	if err != nil {
		return Project{}, false, err
	}
	p, err = l.setStatus(ctx, projectID, prev.ID)
	if err != nil {
		return Project{}, false, err
	}
	return p, prev.IsArchive(), nil
}

func (l *Lifecycle) setStatus(ctx context.Context, projectID, statusID int64) (Project, error) {
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return Project{}, err
	}
	for i, p := range projects {
		if p.ID == projectID {
			projects[i].StatusID = statusID
			if err := l.store.SaveProjects(ctx, projects); err != nil {
				return Project{}, err
			}
			if err := l.stats.Recompute(ctx, p.DeveloperID); err != nil {
				return Project{}, err
			}
			return projects[i], nil
		}
	}
	return Project{}, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
}

// ProjectPatch is a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name        *string `json:"name"`
	CharacterID *int64  `json:"character_id"`
	DeveloperID *int64  `json:"developer_id"`
	StatusID    *int64  `json:"status_id"`
}

// Edit applies a patch. A developer change recomputes both the old and
// the new developer's stats; a bare status change recomputes the current
// developer's.
func (l *Lifecycle) Edit(ctx context.Context, projectID int64, patch ProjectPatch) (Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return Project{}, fmt.Errorf("project name: %w", ErrValidation)
	}
	if patch.CharacterID != nil {
		if err := l.checkCharacter(ctx, *patch.CharacterID); err != nil {
			return Project{}, err
		}
	}
	if patch.DeveloperID != nil {
		if err := l.checkDeveloper(ctx, *patch.DeveloperID); err != nil {
			return Project{}, err
		}
	}
	if patch.StatusID != nil {
		if _, err := l.pipeline.Get(ctx, *patch.StatusID); err != nil {
			return Project{}, err
		}
	}
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return Project{}, err
	}
	for i, p := range projects {
		if p.ID != projectID {
			continue
		}
		oldDeveloper := p.DeveloperID
		if patch.Name != nil {
			projects[i].Name = strings.TrimSpace(*patch.Name)
		}
		if patch.CharacterID != nil {
			projects[i].CharacterID = *patch.CharacterID
		}
		if patch.DeveloperID != nil {
			projects[i].DeveloperID = *patch.DeveloperID
		}
		if patch.StatusID != nil {
			projects[i].StatusID = *patch.StatusID
		}
		if err := l.store.SaveProjects(ctx, projects); err != nil {
			return Project{}, err
		}
		switch {
		case patch.DeveloperID != nil && *patch.DeveloperID != oldDeveloper:
			if err := l.stats.Recompute(ctx, oldDeveloper); err != nil {
				return Project{}, err
			}
			if err := l.stats.Recompute(ctx, *patch.DeveloperID); err != nil {
				return Project{}, err
			}
		case patch.StatusID != nil:
			if err := l.stats.Recompute(ctx, projects[i].DeveloperID); err != nil {
				return Project{}, err
			}
		}
		return projects[i], nil
	}
	return Project{}, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
}

// Delete removes a project and frees its developer's slot in the stats.
func (l *Lifecycle) Delete(ctx context.Context, projectID int64) error {
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return err
	}
	var freed int64
	kept := projects[:0]
	found := false
	for _, p := range projects {
		if p.ID == projectID {
			freed = p.DeveloperID
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err := l.store.SaveProjects(ctx, kept); err != nil {
		return err
	}
	return l.stats.Recompute(ctx, freed)
}

// All returns every project in stored order.
func (l *Lifecycle) All(ctx context.Context) ([]Project, error) {
	return l.store.Projects(ctx)
}

// Active returns projects whose status is not archival. Projects with a
// dangling status id count as active.
func (l *Lifecycle) Active(ctx context.Context) ([]Project, error) {
	return l.filter(ctx, func(p Project, st Status, known bool) bool {
		return !known || !st.IsArchive()
	})
}

// Archived returns projects sitting on an archival status.
func (l *Lifecycle) Archived(ctx context.Context) ([]Project, error) {
	return l.filter(ctx, func(p Project, st Status, known bool) bool {
		return known && st.IsArchive()
	})
}

// Published returns projects in the published archive category.
func (l *Lifecycle) Published(ctx context.Context) ([]Project, error) {
	return l.filter(ctx, func(p Project, st Status, known bool) bool {
		return known && st.Category == CategoryPublished
	})
}

// Banned returns projects in the banned archive category.
func (l *Lifecycle) Banned(ctx context.Context) ([]Project, error) {
	return l.filter(ctx, func(p Project, st Status, known bool) bool {
		return known && st.Category == CategoryBanned
	})
}

// ByRole returns non-archived projects whose current status is waiting on
// the given party. Roles without pipeline responsibility yield nothing.
func (l *Lifecycle) ByRole(ctx context.Context, role Role) ([]Project, error) {
	if role != RoleProducer && role != RoleDesigner {
		return nil, nil
	}
	return l.filter(ctx, func(p Project, st Status, known bool) bool {
		return known && st.Responsible == role && !st.IsArchive()
	})
}

func (l *Lifecycle) filter(ctx context.Context, keep func(p Project, st Status, known bool) bool) ([]Project, error) {
	projects, err := l.store.Projects(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := l.store.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Status, len(statuses))
	for _, st := range statuses {
		byID[st.ID] = st
	}
	var out []Project
	for _, p := range projects {
		st, known := byID[p.StatusID]
		if keep(p, st, known) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *Lifecycle) checkCharacter(ctx context.Context, id int64) error {
	characters, err := l.store.Characters(ctx)
	if err != nil {
		return err
	}
	for _, c := range characters {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("character %d: %w", id, ErrNotFound)
}

func (l *Lifecycle) checkDeveloper(ctx context.Context, id int64) error {
	developers, err := l.store.Developers(ctx)
	if err != nil {
		return err
	}
	for _, d := range developers {
		if d.ID == id {
			return nil
		}
	}
	return fmt.Errorf("developer %d: %w", id, ErrNotFound)
}
