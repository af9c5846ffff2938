// Package tracker keeps one time entry running for the checked-out branch.
//
// The Engine owns a single Session. Branch and idle ticks, and the explicit
// commands (focus, break, enable, disable), all run under one mutex. A tick
// that finds the mutex held is dropped; a command waits for it. Every remote
// call is followed by a re-check of the enabled flag so a Disable that lands
// mid-tick wins over the tick's result.
package tracker

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/git"
	"branch-tracker/internal/logging"
)

// Options tunes the engine. Zero values take the defaults below.
type Options struct {
	Dir              string
	IdleTimeout      time.Duration
	BranchInterval   time.Duration
	IdleInterval     time.Duration
	ContinueWindow   time.Duration
	RecentDays       int
	DefaultProjectID *int64
	BreakProjectID   *int64
	Billable         bool
	Enabled          bool
}

const (
	DefaultIdleTimeout    = 15 * time.Minute
	DefaultBranchInterval = 15 * time.Second
	DefaultIdleInterval   = 30 * time.Second
	DefaultContinueWindow = 10 * time.Minute
	DefaultRecentDays     = 7
	DefaultBreakLabel     = "Break"
)

func (o *Options) withDefaults() {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.BranchInterval <= 0 {
		o.BranchInterval = DefaultBranchInterval
	}
	if o.IdleInterval <= 0 {
		o.IdleInterval = DefaultIdleInterval
	}
	if o.ContinueWindow <= 0 {
		o.ContinueWindow = DefaultContinueWindow
	}
	if o.RecentDays <= 0 {
		o.RecentDays = DefaultRecentDays
	}
}

// Deps are the collaborators the engine drives.
type Deps struct {
	Branches  git.BranchReader
	Gateway   EntryGateway
	Describer *Describer
	Activity  ActivitySource
	Gate      Gate
	Matcher   Matcher
	Sink      StatusSink
	Now       func() time.Time
}

// Engine is the reconciliation loop.
type Engine struct {
	opts      Options
	branches  git.BranchReader
	gateway   EntryGateway
	describer *Describer
	activity  ActivitySource
	gate      Gate
	matcher   Matcher
	sink      StatusSink
	now       func() time.Time

	mu      sync.Mutex
	session Session
	// published is the last status handed to the sink.
	published *Status

	enabled atomic.Bool
	nudge   chan struct{}
}

// NewEngine wires an engine. Gate, Matcher, Sink and Now are optional.
func NewEngine(opts Options, deps Deps) *Engine {
	opts.withDefaults()
	if deps.Matcher == nil {
		deps.Matcher = PrefixMatcher{PrefixLength: DefaultPrefixLength}
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	e := &Engine{
		opts:      opts,
		branches:  deps.Branches,
		gateway:   deps.Gateway,
		describer: deps.Describer,
		activity:  deps.Activity,
		gate:      deps.Gate,
		matcher:   deps.Matcher,
		sink:      deps.Sink,
		now:       deps.Now,
		nudge:     make(chan struct{}, 1),
	}
	e.enabled.Store(opts.Enabled)
	e.session.IsTrackingEnabled = opts.Enabled
	if opts.Enabled {
		e.session.State = StateNoRepo
	}
	return e
}

// Run drives the branch and idle ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	branchTicker := time.NewTicker(e.opts.BranchInterval)
	defer branchTicker.Stop()
	idleTicker := time.NewTicker(e.opts.IdleInterval)
	defer idleTicker.Stop()

	logging.Debugf("engine started in %s (branch every %s, idle every %s)", e.opts.Dir, e.opts.BranchInterval, e.opts.IdleInterval)
	e.CheckBranch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-branchTicker.C:
			e.CheckBranch(ctx)
		case <-e.nudge:
			e.CheckBranch(ctx)
		case <-idleTicker.C:
			e.CheckIdle(ctx)
		}
	}
}

// Nudge asks Run for a branch check as soon as possible. Never blocks.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the session.
func (e *Engine) Snapshot() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// Status returns the status that would be published now.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Enabled reports whether tracking is on.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// CheckBranch is the branch-check tick.
func (e *Engine) CheckBranch(ctx context.Context) {
	if !e.mu.TryLock() {
		logging.Debugf("branch check skipped: engine busy")
		return
	}
	defer e.mu.Unlock()
	e.reconcile(ctx, true)
}

// CheckIdle is the idle-check tick. It stops the running entry once the user
// has been idle for longer than the idle timeout.
func (e *Engine) CheckIdle(ctx context.Context) {
	if !e.mu.TryLock() {
		logging.Debugf("idle check skipped: engine busy")
		return
	}
	defer e.mu.Unlock()

	if !e.enabled.Load() || e.session.IsOnBreak || !e.session.IsRunning() {
		return
	}
	idle := e.activity.IdleDuration()
	if idle <= e.opts.IdleTimeout {
		return
	}

	logging.Debugf("idle for %s, pausing", idle.Round(time.Second))
	e.stopCurrent(ctx)
	now := e.now()
	e.session.PausedAt = &now
	e.setState(StateIdle, "")
}

// FocusGained makes this session take over when the remote is running
// something other than what the current branch should be tracking.
func (e *Engine) FocusGained(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled.Load() || e.session.IsOnBreak {
		return
	}
	// The next tick stops whatever this window holds.
	if e.gate != nil && !e.gate.Allowed(ctx, e.opts.Dir) {
		return
	}

	branch, err := e.branches.CurrentBranch(ctx, e.opts.Dir)
	if err != nil {
		// The next tick reports the no-branch state.
		return
	}
	desc := e.describer.Describe(ctx, branch)
	remote := e.currentRemote(ctx)
	if !e.enabled.Load() {
		return
	}

	if remote != nil && remote.Description == desc.Text {
		e.adopt(remote)
		e.session.CurrentBranch = branch
		e.session.PausedAt = nil
		e.setState(StateTracking, "")
		return
	}

	logging.Debugf("focus: remote does not match %q, re-evaluating", desc.Text)
	e.session.CurrentBranch = ""
	e.session.PausedAt = nil
	e.reconcile(ctx, true)
}

// Enable turns tracking on and schedules an immediate branch check.
func (e *Engine) Enable() {
	e.enabled.Store(true)

	e.mu.Lock()
	e.session.IsTrackingEnabled = true
	e.session.CurrentBranch = ""
	if !e.session.IsOnBreak {
		e.setState(StateNoRepo, "")
	}
	e.mu.Unlock()

	e.Nudge()
}

// Disable turns tracking off and stops the running entry. A tick already in
// flight discards its result.
func (e *Engine) Disable(ctx context.Context) {
	e.enabled.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.IsTrackingEnabled = false
	e.stopCurrent(ctx)
	e.session.PausedAt = nil
	if !e.session.IsOnBreak {
		e.setState(StateDisabled, "")
	}
}

// reconcile is the body of the branch check. Callers hold e.mu.
func (e *Engine) reconcile(ctx context.Context, allowContinue bool) {
	// A running break keeps its status even after tracking is disabled.
	if e.session.IsOnBreak {
		return
	}
	if !e.enabled.Load() {
		e.setState(StateDisabled, "")
		return
	}

	if e.gate != nil && !e.gate.Allowed(ctx, e.opts.Dir) {
		if !e.enabled.Load() {
			return
		}
		e.stopCurrent(ctx)
		e.session.CurrentBranch = ""
		e.setState(StateDisabled, "repository not in an allowed organization")
		return
	}

	branch, err := e.branches.CurrentBranch(ctx, e.opts.Dir)
	if !e.enabled.Load() {
		return
	}
	if err != nil {
		if stderrors.Is(err, git.ErrNoBranch) {
			e.stopCurrent(ctx)
			e.session.CurrentBranch = ""
			e.session.PausedAt = nil
			e.setState(StateNoRepo, "")
			return
		}
		logging.Warnf("cannot read branch: %v", err)
		return
	}

	// Steady state: nothing to ask the remote about.
	if branch == e.session.CurrentBranch && e.session.IsRunning() {
		return
	}

	if e.session.PausedAt != nil {
		if !e.activity.LastActivity().After(*e.session.PausedAt) {
			return
		}
		logging.Debugf("activity since idle pause, resuming")
		e.session.PausedAt = nil
		e.session.CurrentBranch = ""
	}

	remote := e.currentRemote(ctx)
	if !e.enabled.Load() {
		return
	}
	if remote != nil {
		e.adopt(remote)
		if branch == e.session.CurrentBranch {
			e.setState(StateTracking, "")
			return
		}
	}

	e.transition(ctx, branch, remote, allowContinue)
}

// transition moves tracking to branch: adopt the remote entry when it
// already carries the right description, otherwise stop then start.
func (e *Engine) transition(ctx context.Context, branch string, remote *domain.TimeEntry, allowContinue bool) {
	desc := e.describer.Describe(ctx, branch)
	if !e.enabled.Load() {
		return
	}

	if remote != nil && remote.Description == desc.Text {
		logging.Debugf("remote already tracking %q", desc.Text)
		e.session.CurrentBranch = branch
		e.setState(StateTracking, "")
		return
	}

	e.stopCurrent(ctx)
	e.startEntry(ctx, branch, desc.Text, allowContinue)
}

// currentRemote fails open: an unreachable service reads as nothing running.
func (e *Engine) currentRemote(ctx context.Context) *domain.TimeEntry {
	remote, err := e.gateway.CurrentEntry(ctx)
	if err != nil {
		logging.Warnf("cannot read current entry: %v", err)
		return nil
	}
	return remote
}

func (e *Engine) adopt(entry *domain.TimeEntry) {
	if e.session.CurrentEntryID == nil || *e.session.CurrentEntryID != entry.ID {
		logging.Debugf("adopting remote entry %d %q", entry.ID, entry.Description)
	}
	id := entry.ID
	e.session.CurrentEntryID = &id
	e.session.CurrentDescription = entry.Description
	e.session.currentStart = entry.Start
	e.session.currentWorkspace = entry.WorkspaceID
}

// setState records state and publishes it unless nothing visible changed.
func (e *Engine) setState(state State, reason string) {
	e.session.State = state
	e.session.Reason = reason
	s := e.statusLocked()
	if e.published != nil && sameStatus(*e.published, s) {
		return
	}
	e.published = &s
	e.sink.Publish(s)
}

// sameStatus compares everything but the timestamp.
func sameStatus(a, b Status) bool {
	if a.State != b.State || a.Branch != b.Branch || a.Description != b.Description || a.Reason != b.Reason {
		return false
	}
	if a.EntryID == nil || b.EntryID == nil {
		return a.EntryID == b.EntryID
	}
	return *a.EntryID == *b.EntryID
}

func (e *Engine) statusLocked() Status {
	s := Status{
		State:  e.session.State,
		Branch: e.session.CurrentBranch,
		Reason: e.session.Reason,
		At:     e.now(),
	}
	switch {
	case e.session.IsOnBreak:
		s.Description = e.session.BreakLabel
		if e.session.BreakEntryID != nil {
			id := *e.session.BreakEntryID
			s.EntryID = &id
		}
	case e.session.CurrentEntryID != nil:
		s.Description = e.session.CurrentDescription
		id := *e.session.CurrentEntryID
		s.EntryID = &id
	}
	return s
}
