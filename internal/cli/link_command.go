package cli

import (
	"context"
	"fmt"
)

// LinkCommand records that a branch was created from a task, so the task is
// found even when the branch name carries no ticket number
type LinkCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewLinkCommand creates a new link command handler
func NewLinkCommand(app *App) *LinkCommand {
	return &LinkCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute runs the link command: link <branch> <task-id>
func (c *LinkCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: bt link <branch> <task-id>")
	}

	assoc, err := c.app.businessAPI.LinkBranch(ctx, args[0], args[1])
	if err != nil {
		return c.errorHandler.Handle("link branch", err)
	}

	if assoc.TaskName != "" {
		fmt.Fprintf(c.app.out, "Linked %s to task %s: %s\n", args[0], assoc.TaskID, assoc.TaskName)
	} else {
		fmt.Fprintf(c.app.out, "Linked %s to task %s\n", args[0], assoc.TaskID)
	}
	return nil
}
