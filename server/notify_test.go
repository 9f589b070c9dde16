package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureDeliverer records digests and can be told to fail.
type captureDeliverer struct {
	mu    sync.Mutex
	sent  map[int64][]string
	fails bool
}

func newCaptureDeliverer() *captureDeliverer {
	return &captureDeliverer{sent: make(map[int64][]string)}
}

func (c *captureDeliverer) deliver(ctx context.Context, userID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails {
		return errors.New("transport down")
	}
	c.sent[userID] = append(c.sent[userID], text)
	return nil
}

func (c *captureDeliverer) count(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent[userID])
}

func (c *captureDeliverer) setFails(v bool) {
	c.mu.Lock()
	c.fails = v
	c.mu.Unlock()
}

// seedScheduler prepares a world with a producer (5 min interval) and a
// designer (10 min interval), each with one outstanding project.
func seedScheduler(t *testing.T, e *engine) (*Scheduler, *captureDeliverer) {
	t.Helper()
	ctx := context.Background()
	seedWorld(t, e)
	if _, err := e.lifecycle.Create(ctx, "Fox Runner", 1, 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	designerWork, err := e.lifecycle.Create(ctx, "Owl Puzzle", 1, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := e.lifecycle.Advance(ctx, designerWork.ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	five, ten := 5, 10
	if _, err := e.users.GetOrCreate(ctx, 100, "prod", "P"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := e.users.SetRole(ctx, 100, RoleProducer); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if _, err := e.users.SetNotifications(ctx, 100, nil, &five); err != nil {
		t.Fatalf("SetNotifications: %v", err)
	}
	if _, err := e.users.GetOrCreate(ctx, 200, "des", "D"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := e.users.SetRole(ctx, 200, RoleDesigner); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if _, err := e.users.SetNotifications(ctx, 200, nil, &ten); err != nil {
		t.Fatalf("SetNotifications: %v", err)
	}

	sink := newCaptureDeliverer()
	sched := NewScheduler(e.store, e.lifecycle, sink.deliver, discardLogger(), time.Minute)
	return sched, sink
}

func TestSchedulerRespectsPerUserIntervals(t *testing.T) {
	e := newTestEngine()
	sched, sink := seedScheduler(t, e)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sched.now = func() time.Time { return clock }

	// first tick: nobody has been notified yet, both are due
	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(100) != 1 || sink.count(200) != 1 {
		t.Fatalf("after first tick: producer %d designer %d, want 1 and 1",
			sink.count(100), sink.count(200))
	}

	// six minutes later only the 5-minute producer is due again
	clock = base.Add(6 * time.Minute)
	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(100) != 2 || sink.count(200) != 1 {
		t.Errorf("after 6m: producer %d designer %d, want 2 and 1",
			sink.count(100), sink.count(200))
	}

	// at ten minutes the designer crosses their interval too
	clock = base.Add(10 * time.Minute)
	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(200) != 2 {
		t.Errorf("after 10m: designer %d, want 2", sink.count(200))
	}
}

func TestSchedulerSkipsIneligibleUsers(t *testing.T) {
	e := newTestEngine()
	sched, sink := seedScheduler(t, e)
	ctx := context.Background()

	off := false
	if _, err := e.users.SetNotifications(ctx, 100, &off, nil); err != nil {
		t.Fatalf("SetNotifications: %v", err)
	}
	if _, err := e.users.GetOrCreate(ctx, 300, "plain", "U"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(100) != 0 {
		t.Error("disabled user was notified")
	}
	if sink.count(300) != 0 {
		t.Error("plain user without pipeline role was notified")
	}
	if sink.count(200) != 1 {
		t.Errorf("designer digests = %d, want 1", sink.count(200))
	}
}

func TestSchedulerSkipsUsersWithoutWork(t *testing.T) {
	e := newTestEngine()
	sched, sink := seedScheduler(t, e)
	ctx := context.Background()

	// move the designer's only project past the designer status
	projects, _ := e.lifecycle.ByRole(ctx, RoleDesigner)
	if _, _, err := e.lifecycle.Advance(ctx, projects[0].ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(200) != 0 {
		t.Error("designer with no outstanding work was notified")
	}
	if sink.count(100) != 1 {
		t.Errorf("producer digests = %d, want 1", sink.count(100))
	}
}

func TestSchedulerRetriesAfterDeliveryFailure(t *testing.T) {
	e := newTestEngine()
	sched, sink := seedScheduler(t, e)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sched.now = func() time.Time { return clock }

	sink.setFails(true)
	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(100) != 0 {
		t.Fatal("failed delivery was recorded")
	}

	// one minute later, well inside the interval, the digest is retried
	// because the failure left no last-sent mark
	clock = base.Add(time.Minute)
	sink.setFails(false)
	if err := sched.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if sink.count(100) != 1 {
		t.Errorf("producer digests after retry = %d, want 1", sink.count(100))
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	e := newTestEngine()
	sched, _ := seedScheduler(t, e)
	sched.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBuildDigest(t *testing.T) {
	characters := []Character{{ID: 1, Name: "Fox"}}
	statuses := []Status{{ID: 1, Name: "Draft"}}
	projects := []Project{{ID: 1, Name: "Fox Runner", CharacterID: 1, StatusID: 1}}

	got := buildDigest(RoleProducer, projects, characters, statuses)
	want := "You have outstanding tasks (producer)\n\n" +
		"Total tasks: 1\n\n" +
		"1. Fox Runner\n   Fox | Draft"
	if got != want {
		t.Errorf("buildDigest:\n%q\nwant:\n%q", got, want)
	}
}

func TestBuildDigestTruncatesAndMarksUnknown(t *testing.T) {
	characters := []Character{{ID: 1, Name: "Fox"}}
	statuses := []Status{{ID: 1, Name: "Draft"}}
	var projects []Project
	for i := 1; i <= 7; i++ {
		projects = append(projects, Project{
			ID:          int64(i),
			Name:        fmt.Sprintf("P%d", i),
			CharacterID: 99, // dangling
			StatusID:    1,
		})
	}

	got := buildDigest(RoleDesigner, projects, characters, statuses)
	if !strings.Contains(got, "Total tasks: 7") {
		t.Errorf("digest missing total: %q", got)
	}
	if !strings.Contains(got, "5. P5") {
		t.Errorf("digest missing fifth entry: %q", got)
	}
	if strings.Contains(got, "6. P6") {
		t.Errorf("digest lists entries past the limit: %q", got)
	}
	if !strings.HasSuffix(got, "... and 2 more") {
		t.Errorf("digest missing truncation note: %q", got)
	}
	if !strings.Contains(got, "unknown | Draft") {
		t.Errorf("dangling character not rendered as unknown: %q", got)
	}
}
