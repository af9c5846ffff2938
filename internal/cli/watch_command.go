package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"branch-tracker/internal/activity"
	"branch-tracker/internal/config"
	"branch-tracker/internal/logging"
	"branch-tracker/internal/tracker"
)

// LineReader is the prompt input. *readline.Instance implements it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// WatchCommand runs the reconciliation loop for one working directory with
// an interactive prompt for breaks, focus and pausing
type WatchCommand struct {
	config   *config.Config
	services *Services
	out      io.Writer

	newReader func(prompt string) (LineReader, error)
}

// NewWatchCommand creates a new watch command handler
func NewWatchCommand(cfg *config.Config, services *Services, out io.Writer) *WatchCommand {
	return &WatchCommand{
		config:    cfg,
		services:  services,
		out:       out,
		newReader: newReadline,
	}
}

func newReadline(prompt string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

// Execute runs the watch command until the prompt quits or ctx is done
func (w *WatchCommand) Execute(ctx context.Context, args []string) error {
	if err := w.config.ValidateCredentials(); err != nil {
		return err
	}
	dir, err := resolveDir(args)
	if err != nil {
		return err
	}

	monitor := activity.NewMonitor()
	sessionID := uuid.NewString()
	sinks := tracker.FanOut{NewConsoleSink(w.out)}
	var journal *JournalSink
	if w.services.Journal != nil {
		journal = NewJournalSink(w.services.Journal, sessionID, 64)
		sinks = append(sinks, journal)
	}

	engine := tracker.NewEngine(engineOptions(w.config, dir), tracker.Deps{
		Branches:  w.services.Git,
		Gateway:   w.services.Toggl,
		Describer: w.services.Describer,
		Activity:  monitor,
		Gate:      w.services.Gate,
		Sink:      sinks,
	})

	watcher, err := activity.NewWatcher(dir, activity.Handlers{
		Activity:    monitor.RecordActivity,
		BranchMoved: engine.Nudge,
		RemoteChange: func() {
			w.services.Gate.Invalidate()
			engine.Nudge()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	reader, err := w.newReader(color.New(color.FgCyan).Sprint("bt> "))
	if err != nil {
		return err
	}
	logging.SetOutput(w.out)

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(w.out, "%s %s (session %s)\n", cyan("Watching"), dir, sessionID[:8])
	fmt.Fprintln(w.out, "Type 'help' for commands, 'quit' to exit")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(engine.Run(gctx))
	})
	g.Go(func() error {
		watcher.Run(gctx)
		return nil
	})
	if journal != nil {
		g.Go(func() error {
			journal.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		// Closing the reader unblocks Readline when the session ends for
		// any other reason.
		<-gctx.Done()
		return reader.Close()
	})
	g.Go(func() error {
		defer cancel()
		return NewPrompt(engine, monitor, w.out).Run(gctx, reader)
	})

	return g.Wait()
}

// engineOptions maps configuration onto engine options
func engineOptions(cfg *config.Config, dir string) tracker.Options {
	return tracker.Options{
		Dir:              dir,
		IdleTimeout:      cfg.Tracking.IdleTimeout,
		BranchInterval:   cfg.Tracking.BranchInterval,
		IdleInterval:     cfg.Tracking.IdleInterval,
		ContinueWindow:   cfg.Tracking.ContinueWindow,
		RecentDays:       cfg.Tracking.RecentDays,
		DefaultProjectID: optionalID(cfg.Tracking.DefaultProjectID),
		BreakProjectID:   optionalID(cfg.Tracking.BreakProjectID),
		Billable:         cfg.Tracking.Billable,
		Enabled:          cfg.Tracking.Enabled,
	}
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func ignoreCanceled(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// PromptEngine is the part of the engine the prompt drives
type PromptEngine interface {
	Status() tracker.Status
	Enabled() bool
	FocusGained(ctx context.Context)
	StartBreak(ctx context.Context, label string) error
	EndBreak(ctx context.Context) error
	Enable()
	Disable(ctx context.Context)
}

// Prompt maps typed lines onto engine commands
type Prompt struct {
	engine   PromptEngine
	activity interface{ RecordActivity() }
	out      io.Writer
	registry *CommandRegistry
}

// errQuit ends the prompt loop
var errQuit = stderrors.New("quit")

// NewPrompt creates the watch prompt. activity may be nil.
func NewPrompt(engine PromptEngine, activity interface{ RecordActivity() }, out io.Writer) *Prompt {
	p := &Prompt{engine: engine, activity: activity, out: out}
	p.registry = newRegistry("commands: status, focus, break [label], resume, pause, enable, help, quit")
	p.registry.Register("status", CommandFunc(p.cmdStatus))
	p.registry.Register("focus", CommandFunc(p.cmdFocus))
	p.registry.Register("break", CommandFunc(p.cmdBreak))
	p.registry.Register("resume", CommandFunc(p.cmdResume))
	p.registry.Register("pause", CommandFunc(p.cmdPause))
	p.registry.Register("enable", CommandFunc(p.cmdEnable))
	p.registry.Register("help", CommandFunc(p.cmdHelp))
	p.registry.Register("?", CommandFunc(p.cmdHelp))
	p.registry.Register("quit", CommandFunc(p.cmdQuit))
	p.registry.Register("exit", CommandFunc(p.cmdQuit))
	return p
}

// Run reads lines until quit, EOF or ctx is done
func (p *Prompt) Run(ctx context.Context, reader LineReader) error {
	red := color.New(color.FgRed).SprintFunc()
	for {
		line, err := reader.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := p.Handle(ctx, line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintf(p.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// Handle runs one prompt line
func (p *Prompt) Handle(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	// Typing at the prompt counts as being at the keyboard.
	if p.activity != nil {
		p.activity.RecordActivity()
	}
	return p.registry.Execute(ctx, parts[0], parts[1:])
}

func (p *Prompt) cmdStatus(ctx context.Context, args []string) error {
	status := p.engine.Status()
	fmt.Fprintln(p.out, status.Summary())
	if status.Branch != "" {
		fmt.Fprintf(p.out, "  branch %s\n", status.Branch)
	}
	if status.EntryID != nil {
		fmt.Fprintf(p.out, "  entry #%d\n", *status.EntryID)
	}
	return nil
}

func (p *Prompt) cmdFocus(ctx context.Context, args []string) error {
	p.engine.FocusGained(ctx)
	return nil
}

func (p *Prompt) cmdBreak(ctx context.Context, args []string) error {
	if !p.engine.Enabled() {
		return fmt.Errorf("tracking is paused; 'enable' first")
	}
	return NewErrorHandler().Handle("start break", p.engine.StartBreak(ctx, strings.Join(args, " ")))
}

func (p *Prompt) cmdResume(ctx context.Context, args []string) error {
	return NewErrorHandler().Handle("end break", p.engine.EndBreak(ctx))
}

func (p *Prompt) cmdPause(ctx context.Context, args []string) error {
	p.engine.Disable(ctx)
	return nil
}

func (p *Prompt) cmdEnable(ctx context.Context, args []string) error {
	p.engine.Enable()
	return nil
}

func (p *Prompt) cmdHelp(ctx context.Context, args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	commands := []struct {
		name string
		desc string
	}{
		{"status", "Show what is being tracked"},
		{"focus", "Take over from whatever another session is tracking"},
		{"break [label]", "Stop work tracking and start a break entry"},
		{"resume", "End the break and go back to the branch"},
		{"pause", "Stop tracking until 'enable'"},
		{"enable", "Resume tracking after 'pause'"},
		{"quit", "Leave (the running entry keeps running)"},
	}
	for _, c := range commands {
		fmt.Fprintf(p.out, "  %-14s %s\n", green(c.name), c.desc)
	}
	return nil
}

func (p *Prompt) cmdQuit(ctx context.Context, args []string) error {
	return errQuit
}
