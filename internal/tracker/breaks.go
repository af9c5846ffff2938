package tracker

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/logging"
)

// ErrAlreadyOnBreak and ErrNotOnBreak reject break commands issued in the
// wrong state.
var (
	ErrAlreadyOnBreak = stderrors.New("already on a break")
	ErrNotOnBreak     = stderrors.New("not on a break")
)

// StartBreak stops the current entry and runs a non-billable entry named
// label until EndBreak. Branch checks are suspended meanwhile.
func (e *Engine) StartBreak(ctx context.Context, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.IsOnBreak {
		return ErrAlreadyOnBreak
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultBreakLabel
	}

	snapshot := &BreakSnapshot{
		Description: e.session.CurrentDescription,
		Branch:      e.session.CurrentBranch,
	}
	if e.session.CurrentEntryID != nil {
		id := *e.session.CurrentEntryID
		snapshot.EntryID = &id
	}
	e.session.PreBreak = snapshot

	e.stopCurrent(ctx)
	e.session.PausedAt = nil

	created, err := e.gateway.Create(ctx, domain.NewEntry{
		Description: label,
		ProjectID:   e.opts.BreakProjectID,
		Billable:    false,
		Start:       e.now(),
	})
	if err != nil {
		logging.Warnf("failed to start break: %v", err)
		e.session.PreBreak = nil
		e.session.CurrentBranch = ""
		e.setState(StateError, errors.GetUserMessage(err))
		e.Nudge()
		return fmt.Errorf("start break: %w", err)
	}

	id := created.ID
	e.session.IsOnBreak = true
	e.session.BreakEntryID = &id
	e.session.breakWorkspace = created.WorkspaceID
	e.session.BreakLabel = label
	e.setState(StateOnBreak, "")
	return nil
}

// EndBreak stops the break entry and re-derives tracking from the current
// branch. The pre-break entry is never continued, so break time is not
// folded into it.
func (e *Engine) EndBreak(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.IsOnBreak {
		return ErrNotOnBreak
	}

	if id := e.session.BreakEntryID; id != nil {
		if err := e.gateway.Stop(ctx, e.session.breakWorkspace, *id); err != nil {
			logging.Warnf("failed to stop break entry %d: %v", *id, err)
		}
	}
	if pb := e.session.PreBreak; pb != nil && pb.Branch != "" {
		logging.Debugf("break over, resuming from %s", pb.Branch)
	}

	e.session.IsOnBreak = false
	e.session.BreakEntryID = nil
	e.session.breakWorkspace = 0
	e.session.BreakLabel = ""
	e.session.PreBreak = nil
	e.session.CurrentBranch = ""

	if !e.enabled.Load() {
		e.setState(StateDisabled, "")
		return nil
	}
	e.session.State = StateNoRepo
	e.reconcile(ctx, false)
	return nil
}
