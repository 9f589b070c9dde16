package main

import "net/http"

func (a *api) handleListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := a.users.All(r.Context())
	if err != nil {
		a.writeFailure(w, "list users", err)
		return
	}
	if items == nil {
		items = []User{}
	}
	writeJSON(w, 200, items)
}

// POST /api/users upserts the caller by transport id, refreshing names.
func (a *api) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64  `json:"user_id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if err := readJSON(w, r, &req); err != nil || req.UserID == 0 {
		writeError(w, 400, "invalid payload")
		return
	}
	u, err := a.users.GetOrCreate(r.Context(), req.UserID, req.Username, req.FirstName)
	if err != nil {
		a.writeFailure(w, "upsert user", err)
		return
	}
	writeJSON(w, 200, u)
}

func (a *api) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	u, err := a.users.ByID(r.Context(), id)
	if err != nil {
		a.writeFailure(w, "get user", err)
		return
	}
	writeJSON(w, 200, u)
}

func (a *api) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var req struct {
		Role Role `json:"role"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	u, err := a.users.SetRole(r.Context(), id, req.Role)
	if err != nil {
		a.writeFailure(w, "set user role", err)
		return
	}
	writeJSON(w, 200, u)
}

func (a *api) handleSetUserNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	var req struct {
		Enabled  *bool `json:"enabled"`
		Interval *int  `json:"interval"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	u, err := a.users.SetNotifications(r.Context(), id, req.Enabled, req.Interval)
	if err != nil {
		a.writeFailure(w, "set user notifications", err)
		return
	}
	writeJSON(w, 200, u)
}

// GET /api/users/{id}/feed streams the user's events (digests included)
// over SSE. Id 0 subscribes to the firehose.
func (a *api) handleUserFeed(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, 400, "bad id")
		return
	}
	a.bus.ServeSSE(w, r, id)
}
