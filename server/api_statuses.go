package main

import "net/http"

func (a *api) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	items, err := a.pipeline.List(r.Context())
	if err != nil {
		a.writeFailure(w, "list statuses", err)
		return
	}
	writeJSON(w, 200, items)
}

func (a *api) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string   `json:"name"`
		Responsible Role     `json:"responsible"`
		Category    Category `json:"category"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	st, err := a.pipeline.Add(r.Context(), req.Name, req.Responsible, req.Category)
	if err != nil {
		a.writeFailure(w, "create status", err)
		return
	}
	writeJSON(w, 201, st)
	a.bus.Publish(Event{Type: "status.created", Payload: st})
}

func (a *api) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	st, err := a.pipeline.Get(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "get status", err)
		return
	}
	writeJSON(w, 200, st)
}

func (a *api) handleDeleteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if err := a.pipeline.Remove(r.Context(), id); err != nil {
		a.writeFailure(w, "delete status", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
	a.bus.Publish(Event{Type: "status.deleted", Payload: map[string]any{"id": id}})
}

func (a *api) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	cl, err := a.checklists.GetOrCreate(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "get checklist", err)
		return
	}
	writeJSON(w, 200, map[string]any{"checklist": cl, "complete": cl.IsComplete()})
}

func (a *api) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	item, err := a.checklists.AddItem(r.Context(), id, req.Text)
	if err != nil {
		a.writeFailure(w, "add checklist item", err)
		return
	}
	writeJSON(w, 201, item)
}

func (a *api) handleDeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	itemID, err := parseID(r.PathValue("item"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	removed, err := a.checklists.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		a.writeFailure(w, "delete checklist item", err)
		return
	}
	if !removed {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (a *api) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	itemID, err := parseID(r.PathValue("item"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	toggled, err := a.checklists.Toggle(r.Context(), id, itemID)
	if err != nil {
		a.writeFailure(w, "toggle checklist item", err)
		return
	}
	if !toggled {
		writeError(w, 404, "not found")
		return
	}
	complete, err := a.checklists.IsComplete(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "toggle checklist item", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "complete": complete})
}

func (a *api) handleResetChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	if err := a.checklists.Reset(r.Context(), id); err != nil {
		a.writeFailure(w, "reset checklist", err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
