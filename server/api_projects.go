package main

import (
	"context"
	"net/http"
)

// GET /api/projects?filter=active|archived|published|banned or ?role=...
func (a *api) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		items []Project
		err   error
	)
	if role := r.URL.Query().Get("role"); role != "" {
		items, err = a.lifecycle.ByRole(ctx, Role(role))
	} else {
		switch r.URL.Query().Get("filter") {
		case "", "all":
			items, err = a.lifecycle.All(ctx)
		case "active":
			items, err = a.lifecycle.Active(ctx)
		case "archived":
			items, err = a.lifecycle.Archived(ctx)
		case "published":
			items, err = a.lifecycle.Published(ctx)
		case "banned":
			items, err = a.lifecycle.Banned(ctx)
		default:
			writeError(w, 400, "unknown filter")
			return
		}
	}
	if err != nil {
		a.writeFailure(w, "list projects", err)
		return
	}
	if items == nil {
		items = []Project{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		CharacterID int64  `json:"character_id"`
		DeveloperID int64  `json:"developer_id"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	p, err := a.lifecycle.Create(r.Context(), req.Name, req.CharacterID, req.DeveloperID)
	if err != nil {
		a.writeFailure(w, "create project", err)
		return
	}
	writeJSON(w, 201, p)
	a.bus.Publish(Event{Type: "project.created", Payload: p})
}

func (a *api) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	p, err := a.lifecycle.Get(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "get project", err)
		return
	}
	writeJSON(w, 200, p)
}

func (a *api) handleEditProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var patch ProjectPatch
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	p, err := a.lifecycle.Edit(r.Context(), id, patch)
	if err != nil {
		a.writeFailure(w, "edit project", err)
		return
	}
	writeJSON(w, 200, p)
	a.bus.Publish(Event{Type: "project.updated", Payload: p})
}

func (a *api) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if err := a.lifecycle.Delete(r.Context(), id); err != nil {
		a.writeFailure(w, "delete project", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
	a.bus.Publish(Event{Type: "project.deleted", Payload: map[string]any{"id": id}})
}

func (a *api) handleAdvanceProject(w http.ResponseWriter, r *http.Request) {
	a.moveProject(w, r, "advance", a.lifecycle.Advance)
}

func (a *api) handleConfirmAdvanceProject(w http.ResponseWriter, r *http.Request) {
	a.moveProject(w, r, "confirm advance", a.lifecycle.ConfirmAdvance)
}

func (a *api) handleRetreatProject(w http.ResponseWriter, r *http.Request) {
	a.moveProject(w, r, "retreat", a.lifecycle.Retreat)
}

func (a *api) moveProject(w http.ResponseWriter, r *http.Request, op string,
	move func(ctx context.Context, id int64) (Project, bool, error)) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	p, archived, err := move(r.Context(), id)
	if err != nil {
		a.writeFailure(w, op, err)
		return
	}
	writeJSON(w, 200, map[string]any{"project": p, "archived": archived})
	a.bus.Publish(Event{Type: "project.moved", Payload: map[string]any{"id": p.ID, "status_id": p.StatusID, "archived": archived}})
}
