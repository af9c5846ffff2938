package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"branch-tracker/internal/api"
)

// StatusCommand handles the status command
type StatusCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewStatusCommand creates a new status command handler
func NewStatusCommand(app *App) *StatusCommand {
	return &StatusCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute runs the status command. The optional argument is the working
// directory, defaulting to the current one.
func (c *StatusCommand) Execute(ctx context.Context, args []string) error {
	dir, err := resolveDir(args)
	if err != nil {
		return err
	}

	status, err := c.app.businessAPI.GetBranchStatus(ctx, dir)
	if err != nil {
		return c.errorHandler.Handle("read status", err)
	}
	c.print(status)
	return nil
}

func (c *StatusCommand) print(status *api.BranchStatus) {
	out := c.app.out
	label := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(out, "%s %s\n", label("Directory:"), status.Dir)
	if status.Branch == "" {
		fmt.Fprintf(out, "%s %s\n", label("Branch:   "), gray("none (not a repository or detached HEAD)"))
	} else {
		fmt.Fprintf(out, "%s %s\n", label("Branch:   "), status.Branch)
		fmt.Fprintf(out, "%s %s\n", label("Expected: "), status.Description.Text)
	}
	if !status.Allowed {
		fmt.Fprintf(out, "%s %s\n", label("Gate:     "), yellow("repository not in an allowed organization"))
	}

	switch {
	case status.Running == nil:
		fmt.Fprintf(out, "%s %s\n", label("Running:  "), gray("nothing"))
	default:
		entry := status.Running
		marker := yellow("(different task)")
		if status.InSync {
			marker = green("(in sync)")
		}
		fmt.Fprintf(out, "%s #%d %q since %s, %s %s\n", label("Running:  "),
			entry.ID, entry.Description, entry.Start.Local().Format("15:04"),
			formatDuration(timeNow().Sub(entry.Start)), marker)
	}
}

// resolveDir returns the absolute working directory named by args, or the
// current directory
func resolveDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}
	return abs, nil
}
