package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type api struct {
	log        *slog.Logger
	bus        *EventBus
	pipeline   *Pipeline
	checklists *Checklists
	lifecycle  *Lifecycle
	directory  *Directory
	users      *Users
	adminToken string
	// rate limiting buckets per IP:key
	rlMu sync.Mutex
	rl   map[string]*rateBucket
}

func newAPI(log *slog.Logger, bus *EventBus, pipeline *Pipeline, checklists *Checklists,
	lifecycle *Lifecycle, directory *Directory, users *Users, adminToken string) *api {
	return &api{
		log:        log,
		bus:        bus,
		pipeline:   pipeline,
		checklists: checklists,
		lifecycle:  lifecycle,
		directory:  directory,
		users:      users,
		adminToken: adminToken,
		rl:         map[string]*rateBucket{},
	}
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func (a *api) allow(ip, key string, max int, window time.Duration) bool {
	now := time.Now()
	rk := ip + ":" + key
	a.rlMu.Lock()
	b, ok := a.rl[rk]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{count: 0, resetAt: now.Add(window)}
		a.rl[rk] = b
	}
	if b.count >= max {
		a.rlMu.Unlock()
		return false
	}
	b.count++
	a.rlMu.Unlock()
	return true
}

func (a *api) withRateLimit(name string, max int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !a.allow(ip, name, max, window) {
			writeError(w, 429, "too many requests")
			return
		}
		next(w, r)
	}
}

// requireAdmin guards management endpoints with the configured token. An
// empty token disables the guard (development only).
func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adminToken != "" {
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(a.adminToken)) != 1 {
				writeError(w, 403, "forbidden")
				return
			}
		}
		next(w, r)
	}
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// writeFailure maps the engine's error taxonomy to HTTP in one place.
func (a *api) writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, 404, "not found")
	case errors.Is(err, ErrValidation):
		writeError(w, 400, err.Error())
	case errors.Is(err, ErrChecklistIncomplete):
		writeError(w, 409, "checklist incomplete")
	case errors.Is(err, ErrConflict):
		writeError(w, 409, err.Error())
	case errors.Is(err, ErrNoStatuses):
		writeError(w, 409, "no statuses defined")
	default:
		a.log.Error(op, "err", err)
		writeError(w, 500, "internal error")
	}
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Status pipeline
	mux.HandleFunc("GET /api/statuses", a.handleListStatuses)
	mux.HandleFunc("POST /api/statuses", a.requireAdmin(a.handleCreateStatus))
	mux.HandleFunc("GET /api/statuses/{id}", a.handleGetStatus)
	mux.HandleFunc("DELETE /api/statuses/{id}", a.requireAdmin(a.handleDeleteStatus))

	// Checklists
	mux.HandleFunc("GET /api/statuses/{id}/checklist", a.handleGetChecklist)
	mux.HandleFunc("POST /api/statuses/{id}/checklist/items", a.requireAdmin(a.handleAddChecklistItem))
	mux.HandleFunc("DELETE /api/statuses/{id}/checklist/items/{item}", a.requireAdmin(a.handleDeleteChecklistItem))
	mux.HandleFunc("POST /api/statuses/{id}/checklist/items/{item}/toggle", a.handleToggleChecklistItem)
	mux.HandleFunc("POST /api/statuses/{id}/checklist/reset", a.requireAdmin(a.handleResetChecklist))

	// Projects
	mux.HandleFunc("GET /api/projects", a.handleListProjects)
	mux.HandleFunc("POST /api/projects", a.withRateLimit("projects", 60, time.Minute, a.handleCreateProject))
	mux.HandleFunc("GET /api/projects/{id}", a.handleGetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", a.handleEditProject)
	mux.HandleFunc("DELETE /api/projects/{id}", a.requireAdmin(a.handleDeleteProject))
	mux.HandleFunc("POST /api/projects/{id}/advance", a.handleAdvanceProject)
	mux.HandleFunc("POST /api/projects/{id}/confirm-advance", a.handleConfirmAdvanceProject)
	mux.HandleFunc("POST /api/projects/{id}/retreat", a.handleRetreatProject)

	// Characters
	mux.HandleFunc("GET /api/characters", a.handleListCharacters)
	mux.HandleFunc("POST /api/characters", a.withRateLimit("characters", 60, time.Minute, a.handleCreateCharacter))
	mux.HandleFunc("DELETE /api/characters/{id}", a.requireAdmin(a.handleDeleteCharacter))

	// Developers
	mux.HandleFunc("GET /api/developers", a.handleListDevelopers)
	mux.HandleFunc("POST /api/developers", a.withRateLimit("developers", 60, time.Minute, a.handleCreateDeveloper))
	mux.HandleFunc("GET /api/developers/{id}", a.handleGetDeveloper)
	mux.HandleFunc("DELETE /api/developers/{id}", a.requireAdmin(a.handleDeleteDeveloper))
	mux.HandleFunc("POST /api/developers/recompute", a.requireAdmin(a.handleRecomputeDevelopers))

	// Users
	mux.HandleFunc("GET /api/users", a.requireAdmin(a.handleListUsers))
	mux.HandleFunc("POST /api/users", a.handleUpsertUser)
	mux.HandleFunc("GET /api/users/{id}", a.handleGetUser)
	mux.HandleFunc("POST /api/users/{id}/role", a.requireAdmin(a.handleSetUserRole))
	mux.HandleFunc("PATCH /api/users/{id}/notifications", a.handleSetUserNotifications)
	mux.HandleFunc("GET /api/users/{id}/feed", a.handleUserFeed)
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
