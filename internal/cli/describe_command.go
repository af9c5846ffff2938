package cli

import (
	"context"
	"fmt"
	"strings"
)

// DescribeCommand prints the description the tracker would use for a branch
// without touching the time-tracking service
type DescribeCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewDescribeCommand creates a new describe command handler
func NewDescribeCommand(app *App) *DescribeCommand {
	return &DescribeCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute runs the describe command
func (c *DescribeCommand) Execute(ctx context.Context, args []string) error {
	branch := strings.TrimSpace(strings.Join(args, " "))

	dir, err := resolveDir(nil)
	if err != nil {
		return err
	}

	desc, err := c.app.businessAPI.DescribeBranch(ctx, dir, branch)
	if err != nil {
		return c.errorHandler.Handle("describe branch", err)
	}

	fmt.Fprintln(c.app.out, desc.Text)
	if desc.Ticket != "" {
		source := "branch name"
		if desc.FromAssociation {
			source = "branch link"
		}
		fmt.Fprintf(c.app.out, "  task %s (from %s)\n", desc.Ticket, source)
		if desc.Title == "" {
			fmt.Fprintln(c.app.out, "  no title resolved")
		}
	}
	return nil
}
