package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/ticket"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeClock is shared by the engine, the activity source and the gateway.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBranches struct {
	mu     sync.Mutex
	branch string
	err    error
	calls  int
}

func (f *fakeBranches) CurrentBranch(ctx context.Context, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.branch, f.err
}

func (f *fakeBranches) Set(branch string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branch, f.err = branch, err
}

type fakeActivity struct {
	mu    sync.Mutex
	clock *fakeClock
	last  time.Time
}

func (f *fakeActivity) Touch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = f.clock.Now()
}

func (f *fakeActivity) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeActivity) IdleDuration() time.Duration {
	return f.clock.Now().Sub(f.LastActivity())
}

type fakeResolver struct {
	titles map[string]string
}

func (f fakeResolver) Resolve(ctx context.Context, id string) (string, bool) {
	title, ok := f.titles[id]
	return title, ok
}

type fakeGate struct{ allowed bool }

func (f fakeGate) Allowed(ctx context.Context, dir string) bool { return f.allowed }

// fakeGateway is an in-memory time-tracking service. Every call is
// appended to calls so tests can assert on order.
type fakeGateway struct {
	mu      sync.Mutex
	clock   *fakeClock
	nextID  int64
	current *domain.TimeEntry
	entries []domain.TimeEntry
	calls   []string
	// stoppedIn maps a stopped entry id to the workspace it was stopped in.
	stoppedIn map[int64]int64

	currentErr    error
	listErr       error
	createErr     error
	setRunningErr error
	stopErr       error

	// afterCreate runs after a successful create, before it returns.
	afterCreate func()
}

func newFakeGateway(clock *fakeClock) *fakeGateway {
	return &fakeGateway{clock: clock, nextID: 100, stoppedIn: map[int64]int64{}}
}

func (g *fakeGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *fakeGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

func (g *fakeGateway) CurrentEntry(ctx context.Context) (*domain.TimeEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("current")
	if g.currentErr != nil {
		return nil, g.currentErr
	}
	if g.current == nil {
		return nil, nil
	}
	c := *g.current
	return &c, nil
}

func (g *fakeGateway) ListRecent(ctx context.Context, daysBack int) ([]domain.TimeEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("list")
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]domain.TimeEntry, 0, len(g.entries)+1)
	if g.current != nil {
		out = append(out, *g.current)
	}
	// newest first, like the real service
	for i := len(g.entries) - 1; i >= 0; i-- {
		out = append(out, g.entries[i])
	}
	return out, nil
}

func (g *fakeGateway) Create(ctx context.Context, req domain.NewEntry) (*domain.TimeEntry, error) {
	g.mu.Lock()
	g.record("create:" + req.Description)
	if g.createErr != nil {
		err := g.createErr
		g.mu.Unlock()
		return nil, err
	}
	g.nextID++
	entry := domain.TimeEntry{
		ID:          g.nextID,
		WorkspaceID: 7,
		ProjectID:   req.ProjectID,
		Description: req.Description,
		Tags:        req.Tags,
		Billable:    req.Billable,
		Start:       g.clock.Now(),
		DurationSec: domain.RunningDuration,
	}
	g.stopRunningLocked()
	g.current = &entry
	hook := g.afterCreate
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	out := entry
	return &out, nil
}

func (g *fakeGateway) SetRunning(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("setRunning:%d", entry.ID))
	if g.setRunningErr != nil {
		return nil, g.setRunningErr
	}
	for i := range g.entries {
		if g.entries[i].ID == entry.ID {
			resumed := g.entries[i]
			resumed.Stop = nil
			resumed.DurationSec = domain.RunningDuration
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			g.stopRunningLocked()
			g.current = &resumed
			out := resumed
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("time entry", fmt.Sprint(entry.ID))
}

func (g *fakeGateway) Stop(ctx context.Context, workspaceID, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(fmt.Sprintf("stop:%d", id))
	if g.stopErr != nil {
		return g.stopErr
	}
	g.stoppedIn[id] = workspaceID
	if g.current != nil && g.current.ID == id {
		g.stopRunningLocked()
	}
	return nil
}

// SetRemote replaces the running entry as another client would.
func (g *fakeGateway) SetRemote(entry *domain.TimeEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopRunningLocked()
	g.current = entry
}

func (g *fakeGateway) AddStopped(entry domain.TimeEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, entry)
}

func (g *fakeGateway) StoppedIn(id int64) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	wid, ok := g.stoppedIn[id]
	return wid, ok
}

func (g *fakeGateway) Current() *domain.TimeEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *fakeGateway) stopRunningLocked() {
	if g.current == nil {
		return
	}
	stopped := *g.current
	stop := g.clock.Now()
	stopped.Stop = &stop
	stopped.DurationSec = int64(stop.Sub(stopped.Start).Seconds())
	g.entries = append(g.entries, stopped)
	g.current = nil
}

type harness struct {
	engine   *Engine
	clock    *fakeClock
	branches *fakeBranches
	gateway  *fakeGateway
	activity *fakeActivity
	statuses *Recorder
}

func newHarness(t *testing.T, branch string, titles map[string]string) *harness {
	t.Helper()
	clock := &fakeClock{now: t0}
	extractor, err := ticket.NewExtractor("")
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}
	h := &harness{
		clock:    clock,
		branches: &fakeBranches{branch: branch},
		gateway:  newFakeGateway(clock),
		activity: &fakeActivity{clock: clock, last: t0},
		statuses: &Recorder{},
	}
	h.engine = NewEngine(Options{
		Dir:      "/repo",
		Enabled:  true,
		Billable: true,
	}, Deps{
		Branches:  h.branches,
		Gateway:   h.gateway,
		Describer: NewDescriber(extractor, fakeResolver{titles: titles}, nil),
		Activity:  h.activity,
		Sink:      h.statuses,
		Now:       clock.Now,
	})
	return h
}

func (h *harness) tick() {
	h.engine.CheckBranch(context.Background())
}
