package tracker

import (
	"context"
	"time"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/logging"
)

// stopCurrent stops the entry believed to be running. The local belief is
// cleared even when the remote call fails, so the session never sticks to
// an entry the user has moved on from.
func (e *Engine) stopCurrent(ctx context.Context) {
	if e.session.CurrentEntryID == nil {
		return
	}
	id := *e.session.CurrentEntryID

	if err := e.gateway.Stop(ctx, e.session.currentWorkspace, id); err != nil {
		logging.Warnf("failed to stop entry %d: %v", id, err)
	}

	e.session.LastStopped = &StoppedEntry{
		EntryID:     id,
		WorkspaceID: e.session.currentWorkspace,
		Description: e.session.CurrentDescription,
		Start:       e.session.currentStart,
		StoppedAt:   e.now(),
	}
	e.clearCurrent()
}

func (e *Engine) clearCurrent() {
	e.session.CurrentEntryID = nil
	e.session.CurrentDescription = ""
	e.session.currentStart = time.Time{}
	e.session.currentWorkspace = 0
}

// startEntry continues a just-stopped entry with the same description when
// one is inside the continue window, otherwise creates a new entry carrying
// the project and tags of the best earlier match.
func (e *Engine) startEntry(ctx context.Context, branch, description string, allowContinue bool) {
	if allowContinue {
		if last := e.session.LastStopped; last != nil && last.Description == description &&
			!last.Start.IsZero() && e.now().Sub(last.StoppedAt) < e.opts.ContinueWindow {
			candidate := domain.TimeEntry{
				ID:          last.EntryID,
				WorkspaceID: last.WorkspaceID,
				Description: last.Description,
				Start:       last.Start,
			}
			if e.continueEntry(ctx, branch, candidate) {
				return
			}
			if !e.enabled.Load() {
				return
			}
		}
	}

	recent, err := e.gateway.ListRecent(ctx, e.opts.RecentDays)
	if err != nil {
		logging.Warnf("cannot list recent entries: %v", err)
		recent = nil
	}
	if !e.enabled.Load() {
		return
	}

	if allowContinue {
		if candidate, ok := e.continuationCandidate(description, recent); ok {
			if e.continueEntry(ctx, branch, candidate) {
				return
			}
			if !e.enabled.Load() {
				return
			}
		}
	}

	req := domain.NewEntry{
		Description: description,
		Billable:    e.opts.Billable,
		ProjectID:   e.opts.DefaultProjectID,
		Start:       e.now(),
	}
	if match, kind := e.matcher.Match(description, recent); kind != MatchNone {
		if match.HasAssignment() {
			req.ProjectID = match.ProjectID
			req.Tags = match.Tags
			logging.Debugf("reusing assignment of entry %d for %q", match.ID, description)
		}
	}

	created, err := e.gateway.Create(ctx, req)
	if !e.enabled.Load() {
		e.discard(ctx, created)
		return
	}
	e.session.CurrentBranch = branch
	if err != nil {
		logging.Warnf("failed to start entry for %s: %v", branch, err)
		e.clearCurrent()
		e.setState(StateError, errors.GetUserMessage(err))
		return
	}

	e.adopt(created)
	e.setState(StateTracking, "")
}

// continueEntry reopens entry. It reports false when the remote refused, in
// which case the caller creates a new entry instead.
func (e *Engine) continueEntry(ctx context.Context, branch string, entry domain.TimeEntry) bool {
	resumed, err := e.gateway.SetRunning(ctx, entry)
	if !e.enabled.Load() {
		e.discard(ctx, resumed)
		return false
	}
	if err != nil {
		logging.Warnf("failed to continue entry %d, creating a new one: %v", entry.ID, err)
		return false
	}

	logging.Debugf("continued entry %d %q", resumed.ID, resumed.Description)
	e.session.CurrentBranch = branch
	e.adopt(resumed)
	e.setState(StateTracking, "")
	return true
}

// continuationCandidate returns the most recently stopped entry with exactly
// this description that stopped inside the continue window.
func (e *Engine) continuationCandidate(description string, recent []domain.TimeEntry) (domain.TimeEntry, bool) {
	now := e.now()
	var best *domain.TimeEntry
	for i := range recent {
		r := &recent[i]
		if r.Description != description || !r.StoppedWithin(now, e.opts.ContinueWindow) {
			continue
		}
		if best == nil || r.Stop.After(*best.Stop) {
			best = r
		}
	}
	if best == nil {
		return domain.TimeEntry{}, false
	}
	return *best, true
}

// discard stops an entry that came back after tracking was disabled.
func (e *Engine) discard(ctx context.Context, entry *domain.TimeEntry) {
	if entry == nil {
		return
	}
	logging.Debugf("tracking disabled during request, stopping entry %d", entry.ID)
	if err := e.gateway.Stop(ctx, entry.WorkspaceID, entry.ID); err != nil {
		logging.Warnf("failed to stop entry %d: %v", entry.ID, err)
	}
}
