package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/git"
)

const (
	featBranch = "feat/123456-x"
	featDesc   = "[123456] feat/123456-x"
)

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func TestEngine_FirstTickStartsEntry(t *testing.T) {
	h := newHarness(t, featBranch, nil)

	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	require.NotNil(t, snap.CurrentEntryID)
	assert.Equal(t, int64(101), *snap.CurrentEntryID)
	assert.Equal(t, featBranch, snap.CurrentBranch)
	assert.Equal(t, StateTracking, snap.State)

	last, ok := h.statuses.Last()
	require.True(t, ok)
	assert.Equal(t, "tracking "+featDesc, last.Summary())
}

func TestEngine_SteadyStateMakesNoRemoteCalls(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.Reset()

	for i := 0; i < 5; i++ {
		h.clock.Advance(15 * time.Second)
		h.tick()
	}

	assert.Empty(t, h.gateway.Calls())
}

func TestEngine_BranchChangeStopsBeforeStart(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.Reset()

	h.branches.Set("main", nil)
	h.tick()

	calls := h.gateway.Calls()
	assert.Equal(t, []string{"current", "stop:101", "list", "create:main"}, calls)
	assert.Less(t, indexOf(calls, "stop:101"), indexOf(calls, "create:main"))

	snap := h.engine.Snapshot()
	assert.Equal(t, "main", snap.CurrentBranch)
	assert.Equal(t, "main", snap.CurrentDescription)
	require.NotNil(t, snap.LastStopped)
	assert.Equal(t, int64(101), snap.LastStopped.EntryID)
}

func TestEngine_StopFailureStillMovesOn(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.stopErr = errors.NewNetworkError("toggl", "stop entry", fmt.Errorf("reset"))
	h.gateway.Reset()

	h.branches.Set("main", nil)
	h.tick()

	assert.Equal(t, []string{"current", "stop:101", "list", "create:main"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	require.NotNil(t, snap.CurrentEntryID)
	assert.Equal(t, int64(102), *snap.CurrentEntryID)
	require.NotNil(t, snap.LastStopped)
	assert.Equal(t, int64(101), snap.LastStopped.EntryID)
}

func TestEngine_CurrentEntryFailureFailsOpen(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.currentErr = errors.NewNetworkError("toggl", "get current entry", fmt.Errorf("dial"))

	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc}, h.gateway.Calls())
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)
}

func TestEngine_ListFailureStillCreates(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.listErr = errors.NewRemoteError("toggl", "list entries", 500, "")

	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc}, h.gateway.Calls())
}

func TestEngine_CreateFailureReportsErrorAndRetries(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.createErr = errors.NewRemoteError("toggl", "create entry", 503, "")

	h.tick()

	snap := h.engine.Snapshot()
	assert.Nil(t, snap.CurrentEntryID)
	assert.Equal(t, StateError, snap.State)
	last, _ := h.statuses.Last()
	assert.Contains(t, last.Summary(), "error:")

	h.gateway.createErr = nil
	h.gateway.Reset()
	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc}, h.gateway.Calls())
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)
}

func TestEngine_AdoptsRemoteEntryWithoutStopOrCreate(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.createErr = errors.NewRemoteError("toggl", "create entry", 503, "")
	h.tick()
	h.gateway.createErr = nil

	other := &domain.TimeEntry{ID: 500, WorkspaceID: 7, Description: "started elsewhere", Start: t0, DurationSec: -1}
	h.gateway.SetRemote(other)
	h.gateway.Reset()

	h.tick()

	assert.Equal(t, []string{"current"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	require.NotNil(t, snap.CurrentEntryID)
	assert.Equal(t, int64(500), *snap.CurrentEntryID)
	assert.Equal(t, "started elsewhere", snap.CurrentDescription)
	assert.Equal(t, StateTracking, snap.State)
}

func TestEngine_AdoptsRemoteAlreadyTrackingNewBranch(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()

	h.gateway.SetRemote(&domain.TimeEntry{ID: 600, WorkspaceID: 7, Description: "main", Start: t0, DurationSec: -1})
	h.branches.Set("main", nil)
	h.gateway.Reset()

	h.tick()

	assert.Equal(t, []string{"current"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	assert.Equal(t, int64(600), *snap.CurrentEntryID)
	assert.Equal(t, "main", snap.CurrentBranch)
}

func TestEngine_ContinuesRecentlyStoppedEntry(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.branches.Set("main", nil)
	h.tick()

	h.clock.Advance(5 * time.Minute)
	h.branches.Set(featBranch, nil)
	h.gateway.Reset()
	h.tick()

	calls := h.gateway.Calls()
	assert.Equal(t, []string{"current", "stop:102", "list", "setRunning:101"}, calls)
	assert.Equal(t, -1, indexOf(calls, "create:"+featDesc))
	assert.Equal(t, int64(101), *h.engine.Snapshot().CurrentEntryID)
}

func TestEngine_CreatesAfterContinueWindow(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.branches.Set("main", nil)
	h.tick()

	h.clock.Advance(10 * time.Minute)
	h.branches.Set(featBranch, nil)
	h.gateway.Reset()
	h.tick()

	assert.Equal(t, []string{"current", "stop:102", "list", "create:" + featDesc}, h.gateway.Calls())
}

func TestEngine_ContinueFailureFallsBackToCreate(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.branches.Set("main", nil)
	h.tick()

	h.clock.Advance(time.Minute)
	h.gateway.setRunningErr = errors.NewRemoteError("toggl", "continue entry", 400, "")
	h.branches.Set(featBranch, nil)
	h.gateway.Reset()
	h.tick()

	assert.Equal(t, []string{"current", "stop:102", "list", "setRunning:101", "create:" + featDesc}, h.gateway.Calls())
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)
}

func TestEngine_CopiesProjectAndTagsFromMatch(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	project := int64(77)
	stop := t0.Add(-2 * time.Hour)
	// 40 is listed first but carries no project, so 50 wins.
	h.gateway.AddStopped(domain.TimeEntry{ID: 50, Description: featDesc, ProjectID: &project, Tags: []string{"dev"}, Start: t0.Add(-5 * time.Hour), Stop: &stop, DurationSec: 3600})
	h.gateway.AddStopped(domain.TimeEntry{ID: 40, Description: featDesc, Start: t0.Add(-3 * time.Hour), Stop: &stop, DurationSec: 3600})

	h.tick()

	current := h.gateway.Current()
	require.NotNil(t, current)
	require.NotNil(t, current.ProjectID)
	assert.Equal(t, int64(77), *current.ProjectID)
	assert.Equal(t, []string{"dev"}, current.Tags)
}

func TestEngine_UsesDefaultProjectWithoutMatch(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	project := int64(9)
	h.engine.opts.DefaultProjectID = &project

	h.tick()

	current := h.gateway.Current()
	require.NotNil(t, current)
	require.NotNil(t, current.ProjectID)
	assert.Equal(t, int64(9), *current.ProjectID)
	assert.True(t, current.Billable)
}

func TestEngine_IdlePauseAndResume(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()

	h.clock.Advance(14 * time.Minute)
	h.engine.CheckIdle(context.Background())
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)

	h.clock.Advance(2 * time.Minute)
	h.gateway.Reset()
	h.engine.CheckIdle(context.Background())

	assert.Equal(t, []string{"stop:101"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.CurrentEntryID)
	assert.Equal(t, featBranch, snap.CurrentBranch)
	require.NotNil(t, snap.PausedAt)

	// No activity yet: stay paused without asking the remote.
	h.gateway.Reset()
	h.clock.Advance(15 * time.Second)
	h.tick()
	assert.Empty(t, h.gateway.Calls())

	h.clock.Advance(time.Minute)
	h.activity.Touch()
	h.tick()

	assert.Equal(t, []string{"current", "setRunning:101"}, h.gateway.Calls())
	snap = h.engine.Snapshot()
	assert.Equal(t, StateTracking, snap.State)
	assert.Nil(t, snap.PausedAt)
}

func TestEngine_LongIdleResumesWithNewEntry(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.clock.Advance(16 * time.Minute)
	h.engine.CheckIdle(context.Background())

	h.clock.Advance(30 * time.Minute)
	h.activity.Touch()
	h.gateway.Reset()
	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc}, h.gateway.Calls())
}

func TestEngine_IdleCheckWithoutEntryIsNoop(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.clock.Advance(time.Hour)
	h.engine.CheckIdle(context.Background())
	assert.Empty(t, h.gateway.Calls())
}

func TestEngine_NoBranchStopsEntry(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.Reset()

	h.branches.Set("", git.ErrNoBranch)
	h.tick()

	assert.Equal(t, []string{"stop:101"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	assert.Equal(t, StateNoRepo, snap.State)
	assert.Empty(t, snap.CurrentBranch)
	assert.Nil(t, snap.CurrentEntryID)

	h.gateway.Reset()
	h.tick()
	assert.Empty(t, h.gateway.Calls())
}

func TestEngine_RepeatedTicksPublishOnlyChanges(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	published := len(h.statuses.All())

	h.branches.Set("", git.ErrNoBranch)
	for i := 0; i < 3; i++ {
		h.clock.Advance(15 * time.Second)
		h.tick()
	}
	require.Len(t, h.statuses.All(), published+1)
	last, _ := h.statuses.Last()
	assert.Equal(t, "no branch", last.Summary())

	h.engine.Disable(context.Background())
	for i := 0; i < 3; i++ {
		h.clock.Advance(15 * time.Second)
		h.tick()
	}
	require.Len(t, h.statuses.All(), published+2)
	last, _ = h.statuses.Last()
	assert.Equal(t, "disabled", last.Summary())
}

func TestEngine_StopUsesEntryWorkspace(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.SetRemote(&domain.TimeEntry{ID: 500, WorkspaceID: 42, Description: featDesc, Start: t0, DurationSec: -1})
	h.tick()
	require.Equal(t, int64(500), *h.engine.Snapshot().CurrentEntryID)

	h.branches.Set("main", nil)
	h.tick()

	wid, ok := h.gateway.StoppedIn(500)
	require.True(t, ok)
	assert.Equal(t, int64(42), wid)
}

func TestEngine_TransientBranchErrorKeepsState(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.Reset()

	h.branches.Set("", fmt.Errorf("git: resource temporarily unavailable"))
	h.tick()

	assert.Empty(t, h.gateway.Calls())
	snap := h.engine.Snapshot()
	assert.Equal(t, StateTracking, snap.State)
	assert.NotNil(t, snap.CurrentEntryID)
}

func TestEngine_DisableStopsAndSilencesTicks(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()
	h.gateway.Reset()

	h.engine.Disable(context.Background())
	assert.Equal(t, []string{"stop:101"}, h.gateway.Calls())
	assert.Equal(t, StateDisabled, h.engine.Snapshot().State)
	assert.False(t, h.engine.Enabled())

	branchCalls := h.branches.calls
	h.gateway.Reset()
	h.tick()
	h.clock.Advance(time.Hour)
	h.engine.CheckIdle(context.Background())
	assert.Empty(t, h.gateway.Calls())
	assert.Equal(t, branchCalls, h.branches.calls)

	h.engine.Enable()
	assert.True(t, h.engine.Enabled())
	select {
	case <-h.engine.nudge:
	default:
		t.Fatal("enable should nudge the branch check")
	}
	h.activity.Touch()
	h.tick()
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)
}

func TestEngine_DisabledDuringCreateDiscardsResult(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.gateway.afterCreate = func() { h.engine.enabled.Store(false) }

	h.tick()

	assert.Equal(t, []string{"current", "list", "create:" + featDesc, "stop:101"}, h.gateway.Calls())
	snap := h.engine.Snapshot()
	assert.Nil(t, snap.CurrentEntryID)
	assert.Empty(t, snap.CurrentBranch)
	assert.Nil(t, h.gateway.Current())
}

func TestEngine_TickDroppedWhileBusy(t *testing.T) {
	h := newHarness(t, featBranch, nil)

	h.engine.mu.Lock()
	h.tick()
	h.engine.CheckIdle(context.Background())
	h.engine.mu.Unlock()

	assert.Empty(t, h.gateway.Calls())
	assert.Equal(t, 0, h.branches.calls)
}

func TestEngine_ClosedGateDisablesTracking(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.engine.gate = fakeGate{allowed: false}

	h.tick()

	assert.Empty(t, h.gateway.Calls())
	assert.Equal(t, 0, h.branches.calls)
	snap := h.engine.Snapshot()
	assert.Equal(t, StateDisabled, snap.State)
	assert.Contains(t, snap.Reason, "allowed organization")

	h.engine.gate = fakeGate{allowed: true}
	h.tick()
	assert.Equal(t, StateTracking, h.engine.Snapshot().State)
}

func TestEngine_FocusIgnoredOutsideAllowedOrganization(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.engine.gate = fakeGate{allowed: false}
	h.gateway.SetRemote(&domain.TimeEntry{ID: 500, WorkspaceID: 7, Description: featDesc, Start: t0, DurationSec: -1})

	h.engine.FocusGained(context.Background())

	assert.Empty(t, h.gateway.Calls())
	assert.Equal(t, 0, h.branches.calls)
	snap := h.engine.Snapshot()
	assert.Nil(t, snap.CurrentEntryID)
	assert.NotEqual(t, StateTracking, snap.State)

	h.tick()
	assert.NotContains(t, h.gateway.Calls(), "stop:500")
	require.NotNil(t, h.gateway.Current())
	assert.Equal(t, int64(500), h.gateway.Current().ID)
}

func TestEngine_FocusAdoptsMatchingRemote(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()

	h.gateway.SetRemote(&domain.TimeEntry{ID: 500, WorkspaceID: 7, Description: featDesc, Start: t0, DurationSec: -1})
	h.gateway.Reset()

	h.engine.FocusGained(context.Background())

	assert.Equal(t, []string{"current"}, h.gateway.Calls())
	assert.Equal(t, int64(500), *h.engine.Snapshot().CurrentEntryID)
}

func TestEngine_FocusTakesOverFromOtherWindow(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()

	h.clock.Advance(time.Minute)
	h.gateway.SetRemote(&domain.TimeEntry{ID: 900, WorkspaceID: 7, Description: "other window", Start: h.clock.Now(), DurationSec: -1})
	h.gateway.Reset()

	h.engine.FocusGained(context.Background())

	calls := h.gateway.Calls()
	require.NotEqual(t, -1, indexOf(calls, "stop:900"))
	assert.Less(t, indexOf(calls, "stop:900"), indexOf(calls, "setRunning:101"))

	snap := h.engine.Snapshot()
	assert.Equal(t, int64(101), *snap.CurrentEntryID)
	assert.Equal(t, featDesc, snap.CurrentDescription)
	assert.Equal(t, featBranch, snap.CurrentBranch)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.tick()

	snap := h.engine.Snapshot()
	*snap.CurrentEntryID = 999
	assert.Equal(t, int64(101), *h.engine.Snapshot().CurrentEntryID)
}

func TestEngine_Run(t *testing.T) {
	h := newHarness(t, featBranch, nil)
	h.engine.opts.BranchInterval = 5 * time.Millisecond
	h.engine.opts.IdleInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	assert.Eventually(t, func() bool {
		c := h.gateway.Current()
		return c != nil && c.Description == featDesc
	}, time.Second, 5*time.Millisecond)

	h.branches.Set("main", nil)
	h.engine.Nudge()
	assert.Eventually(t, func() bool {
		c := h.gateway.Current()
		return c != nil && c.Description == "main"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
