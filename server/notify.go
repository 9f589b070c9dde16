package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DeliverFunc hands a digest to the transport. Errors are the scheduler's
// to log; they never propagate past a tick.
type DeliverFunc func(ctx context.Context, userID int64, text string) error

// Scheduler periodically digests pipeline-assigned work for each eligible
// user. Last-sent times live only in memory: a restart re-notifies anyone
// who qualifies, which is the accepted at-least-once model.
type Scheduler struct {
	store     Storage
	lifecycle *Lifecycle
	deliver   DeliverFunc
	log       *slog.Logger

	tick time.Duration
	now  func() time.Time

	mu       sync.Mutex
	lastSent map[int64]time.Time
}

func NewScheduler(store Storage, lifecycle *Lifecycle, deliver DeliverFunc, log *slog.Logger, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		store:     store,
		lifecycle: lifecycle,
		deliver:   deliver,
		log:       log,
		tick:      tick,
		now:       time.Now,
		lastSent:  make(map[int64]time.Time),
	}
}

// Run loops until the context is cancelled. A failed tick is logged and
// retried on the next beat; the loop itself never dies.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("notification scheduler started", "tick", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		if err := s.tickOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("notification tick", "err", err)
		}
		select {
		case <-ctx.Done():
			s.log.Info("notification scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// tickOnce evaluates every user once. A user is due when notifications are
// enabled, their role has non-archived work, and their configured interval
// has elapsed since the last successful delivery.
func (s *Scheduler) tickOnce(ctx context.Context) error {
	users, err := s.store.Users(ctx)
	if err != nil {
		return err
	}
	var characters []Character
	var statuses []Status
	loaded := false
	now := s.now()
	for _, u := range users {
		if !u.NotificationsEnabled {
			continue
		}
		if u.Role != RoleProducer && u.Role != RoleDesigner {
			continue
		}
		if !s.due(u, now) {
			continue
		}
		projects, err := s.lifecycle.ByRole(ctx, u.Role)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			continue
		}
		if !loaded {
			if characters, err = s.store.Characters(ctx); err != nil {
				return err
			}
			if statuses, err = s.store.Statuses(ctx); err != nil {
				return err
			}
			loaded = true
		}
		text := buildDigest(u.Role, projects, characters, statuses)
		if err := s.deliver(ctx, u.UserID, text); err != nil {
			// Leave lastSent alone so the digest is retried next tick.
			s.log.Error("deliver digest", "user_id", u.UserID, "err", err)
			continue
		}
		s.markSent(u.UserID, now)
		s.log.Info("digest sent", "user_id", u.UserID, "tasks", len(projects), "interval_min", u.NotificationInterval)
	}
	return nil
}

func (s *Scheduler) due(u User, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastSent[u.UserID]
	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(u.NotificationInterval)*time.Minute
}

func (s *Scheduler) markSent(userID int64, at time.Time) {
	s.mu.Lock()
	s.lastSent[userID] = at
	s.mu.Unlock()
}

const digestLimit = 5

// buildDigest renders the outstanding-work message: total count, the first
// projects in stored order, and a truncation note past the limit. Dangling
// character or status references render as "unknown".
func buildDigest(role Role, projects []Project, characters []Character, statuses []Status) string {
	charNames := make(map[int64]string, len(characters))
	for _, c := range characters {
		charNames[c.ID] = c.Name
	}
	statusNames := make(map[int64]string, len(statuses))
	for _, st := range statuses {
		statusNames[st.ID] = st.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have outstanding tasks (%s)\n\n", role)
	fmt.Fprintf(&b, "Total tasks: %d\n\n", len(projects))
	for i, p := range projects {
		if i == digestLimit {
			break
		}
		character, ok := charNames[p.CharacterID]
		if !ok {
			character = "unknown"
		}
		status, ok := statusNames[p.StatusID]
		if !ok {
			status = "unknown"
		}
		fmt.Fprintf(&b, "%d. %s\n   %s | %s\n\n", i+1, p.Name, character, status)
	}
	if len(projects) > digestLimit {
		fmt.Fprintf(&b, "... and %d more", len(projects)-digestLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}
