package main

import "net/http"

func (a *api) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	items, err := a.directory.Characters(r.Context())
	if err != nil {
		a.writeFailure(w, "list characters", err)
		return
	}
	if items == nil {
		items = []Character{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	c, err := a.directory.AddCharacter(r.Context(), req.Name)
	if err != nil {
		a.writeFailure(w, "create character", err)
		return
	}
	writeJSON(w, 201, c)
}

func (a *api) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if err := a.directory.DeleteCharacter(r.Context(), id); err != nil {
		a.writeFailure(w, "delete character", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleListDevelopers(w http.ResponseWriter, r *http.Request) {
	items, err := a.directory.Developers(r.Context())
	if err != nil {
		a.writeFailure(w, "list developers", err)
		return
	}
	if items == nil {
		items = []Developer{}
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateDeveloper(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	d, err := a.directory.AddDeveloper(r.Context(), req.Name, req.Username)
	if err != nil {
		a.writeFailure(w, "create developer", err)
		return
	}
	writeJSON(w, 201, d)
}

func (a *api) handleGetDeveloper(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	d, err := a.directory.DeveloperByID(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "get developer", err)
		return
	}
	writeJSON(w, 200, d)
}

func (a *api) handleDeleteDeveloper(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if err := a.directory.DeleteDeveloper(r.Context(), id); err != nil {
		a.writeFailure(w, "delete developer", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleRecomputeDevelopers(w http.ResponseWriter, r *http.Request) {
	if err := a.directory.stats.RecomputeAll(r.Context()); err != nil {
		a.writeFailure(w, "recompute developers", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
