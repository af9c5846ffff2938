package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branch-tracker/internal/config"
	"branch-tracker/internal/tracker"
)

type fakePromptEngine struct {
	enabled    bool
	status     tracker.Status
	calls      []string
	breakLabel string
	breakErr   error
}

func (f *fakePromptEngine) Status() tracker.Status { return f.status }
func (f *fakePromptEngine) Enabled() bool          { return f.enabled }

func (f *fakePromptEngine) FocusGained(ctx context.Context) {
	f.calls = append(f.calls, "focus")
}

func (f *fakePromptEngine) StartBreak(ctx context.Context, label string) error {
	f.calls = append(f.calls, "break")
	f.breakLabel = label
	return f.breakErr
}

func (f *fakePromptEngine) EndBreak(ctx context.Context) error {
	f.calls = append(f.calls, "resume")
	return nil
}

func (f *fakePromptEngine) Enable() {
	f.enabled = true
	f.calls = append(f.calls, "enable")
}

func (f *fakePromptEngine) Disable(ctx context.Context) {
	f.enabled = false
	f.calls = append(f.calls, "pause")
}

type countingActivity struct{ n int }

func (c *countingActivity) RecordActivity() { c.n++ }

// scriptedReader returns its lines, then the final error
type scriptedReader struct {
	lines  []string
	final  error
	closed bool
}

func (s *scriptedReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", s.final
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func (s *scriptedReader) Close() error {
	s.closed = true
	return nil
}

func TestPrompt_Run(t *testing.T) {
	engine := &fakePromptEngine{enabled: true}
	act := &countingActivity{}
	out := &bytes.Buffer{}
	reader := &scriptedReader{
		lines: []string{"focus", "", "break lunch with team", "^C", "resume", "pause", "enable", "quit", "focus"},
		final: io.EOF,
	}

	err := NewPrompt(engine, act, out).Run(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"focus", "break", "resume", "pause", "enable"}, engine.calls)
	assert.Equal(t, "lunch with team", engine.breakLabel)
	assert.Equal(t, 6, act.n)
	assert.Len(t, reader.lines, 1, "lines after quit are not read")
}

func TestPrompt_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	engine := &fakePromptEngine{enabled: true, breakErr: tracker.ErrAlreadyOnBreak}
	out := &bytes.Buffer{}
	reader := &scriptedReader{lines: []string{"break", "dance", "focus"}, final: io.EOF}

	require.NoError(t, NewPrompt(engine, nil, out).Run(context.Background(), reader))
	assert.Contains(t, out.String(), "Error: failed to start break: already on a break")
	assert.Contains(t, out.String(), "unknown command")
	assert.Equal(t, []string{"break", "focus"}, engine.calls)
}

func TestPrompt_BreakWhilePaused(t *testing.T) {
	engine := &fakePromptEngine{enabled: false}
	err := NewPrompt(engine, nil, io.Discard).Handle(context.Background(), "break")
	require.Error(t, err)
	assert.Empty(t, engine.calls)
}

func TestPrompt_Status(t *testing.T) {
	id := int64(42)
	engine := &fakePromptEngine{status: tracker.Status{State: tracker.StateTracking, Branch: "main", Description: "main", EntryID: &id}}
	out := &bytes.Buffer{}

	require.NoError(t, NewPrompt(engine, nil, out).Handle(context.Background(), "status"))
	assert.Equal(t, "tracking main\n  branch main\n  entry #42\n", out.String())

	out.Reset()
	require.NoError(t, NewPrompt(engine, nil, out).Handle(context.Background(), "help"))
	assert.Contains(t, out.String(), "break [label]")
}

func TestPrompt_ReaderFailure(t *testing.T) {
	boom := stderrors.New("terminal gone")
	err := NewPrompt(&fakePromptEngine{}, nil, io.Discard).Run(context.Background(), &scriptedReader{final: boom})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewPrompt(&fakePromptEngine{}, nil, io.Discard).Run(ctx, &scriptedReader{final: boom})
	assert.NoError(t, err, "a cancelled session ends quietly")
}

func TestWatchCommand_RequiresCredentials(t *testing.T) {
	cfg := config.NewConfig()
	cmd := NewWatchCommand(cfg, &Services{}, io.Discard)

	err := cmd.Execute(context.Background(), nil)
	require.Error(t, err)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "toggl.api_token", cfgErr.Field)
}

func TestEngineOptions(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Tracking.DefaultProjectID = 77
	cfg.Tracking.IdleTimeout = 5 * time.Minute

	opts := engineOptions(cfg, "/repo")
	assert.Equal(t, "/repo", opts.Dir)
	assert.Equal(t, 5*time.Minute, opts.IdleTimeout)
	require.NotNil(t, opts.DefaultProjectID)
	assert.Equal(t, int64(77), *opts.DefaultProjectID)
	assert.Nil(t, opts.BreakProjectID)
	assert.True(t, opts.Enabled)
	assert.True(t, opts.Billable)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))
	assert.Error(t, ignoreCanceled(context.DeadlineExceeded))
}
