package main

import "context"

// Stats keeps developer counters equal to a full re-scan of the project
// set. The counters are projections: any caller that missed a recompute is
// healed by the next one, so calling redundantly is safe and encouraged.
type Stats struct {
	store Storage
}

func NewStats(store Storage) *Stats { return &Stats{store: store} }

// Recompute rebuilds the three counters for one developer. Unknown
// developer ids are ignored; the project that referenced them is already
// dangling and there is nothing to update.
func (s *Stats) Recompute(ctx context.Context, developerID int64) error {
	developers, err := s.store.Developers(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, d := range developers {
		if d.ID == developerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	projects, err := s.store.Projects(ctx)
	if err != nil {
		return err
	}
	statuses, err := s.store.Statuses(ctx)
	if err != nil {
		return err
	}
	total, released, banned := tally(projects, statuses, developerID)
	if developers[idx].TotalProjects == total &&
		developers[idx].ReleasedProjects == released &&
		developers[idx].BannedProjects == banned {
		return nil
	}
	developers[idx].TotalProjects = total
	developers[idx].ReleasedProjects = released
	developers[idx].BannedProjects = banned
	return s.store.SaveDevelopers(ctx, developers)
}

// RecomputeAll rebuilds every developer's counters in one pass. Used
// before any display of the counters to compensate for missed updates.
func (s *Stats) RecomputeAll(ctx context.Context) error {
	developers, err := s.store.Developers(ctx)
	if err != nil {
		return err
	}
	if len(developers) == 0 {
		return nil
	}
	projects, err := s.store.Projects(ctx)
	if err != nil {
		return err
	}
	statuses, err := s.store.Statuses(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i, d := range developers {
		total, released, banned := tally(projects, statuses, d.ID)
		if d.TotalProjects != total || d.ReleasedProjects != released || d.BannedProjects != banned {
			developers[i].TotalProjects = total
			developers[i].ReleasedProjects = released
			developers[i].BannedProjects = banned
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.store.SaveDevelopers(ctx, developers)
}

// tally classifies each of a developer's projects by its status category.
// A project with a dangling status counts toward total only, so
// released+banned never exceeds total.
func tally(projects []Project, statuses []Status, developerID int64) (total, released, banned int) {
	categories := make(map[int64]Category, len(statuses))
	for _, st := range statuses {
		categories[st.ID] = st.Category
	}
	for _, p := range projects {
		if p.DeveloperID != developerID {
			continue
		}
		total++
		switch categories[p.StatusID] {
		case CategoryPublished:
			released++
		case CategoryBanned:
			banned++
		}
	}
	return total, released, banned
}
