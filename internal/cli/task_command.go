package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

// TaskCommand shows the extended record of one task
type TaskCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewTaskCommand creates a new task command handler
func NewTaskCommand(app *App) *TaskCommand {
	return &TaskCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute runs the task command: task <task-id>
func (c *TaskCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bt task <task-id>")
	}

	details, err := c.app.businessAPI.GetTaskDetails(ctx, args[0])
	if err != nil {
		return c.errorHandler.Handle("look up task", err)
	}

	bold := color.New(color.Bold).SprintFunc()
	out := c.app.out
	fmt.Fprintf(out, "%s %s\n", bold(details.ID), details.Name)
	if details.BoardName != "" {
		fmt.Fprintf(out, "  Board:   %s (%s)\n", details.BoardName, details.BoardID)
	}
	if details.GroupTitle != "" {
		fmt.Fprintf(out, "  Group:   %s\n", details.GroupTitle)
	}
	if details.Status != "" {
		fmt.Fprintf(out, "  Status:  %s\n", details.Status)
	}
	if details.State != "" && details.State != "active" {
		fmt.Fprintf(out, "  State:   %s\n", details.State)
	}
	fmt.Fprintf(out, "  Updates: %d\n", details.UpdateCount)
	if details.URL != "" {
		fmt.Fprintf(out, "  %s\n", details.URL)
	}
	return nil
}
