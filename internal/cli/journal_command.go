package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"branch-tracker/internal/errors"
	"branch-tracker/internal/repository/sqlite"
)

// JournalCommand lists or prunes recorded transitions
type JournalCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewJournalCommand creates a new journal command handler
func NewJournalCommand(app *App) *JournalCommand {
	return &JournalCommand{app: app, errorHandler: NewErrorHandler()}
}

type journalArgs struct {
	limit     int
	sessionID string
	prune     time.Duration
}

// Execute runs the journal command: journal [limit] [session=<id>] [prune=<age>]
func (c *JournalCommand) Execute(ctx context.Context, args []string) error {
	opts, err := parseJournalArgs(args)
	if err != nil {
		return err
	}

	if opts.prune > 0 {
		removed, err := c.app.businessAPI.PruneTransitions(ctx, opts.prune)
		if err != nil {
			return c.errorHandler.Handle("prune journal", err)
		}
		fmt.Fprintf(c.app.out, "Removed %d transitions older than %s\n", removed, formatDuration(opts.prune))
		return nil
	}

	rows, err := c.app.businessAPI.ListTransitions(ctx, opts.sessionID, opts.limit)
	if err != nil {
		return c.errorHandler.Handle("read journal", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(c.app.out, "No transitions recorded")
		return nil
	}
	for _, row := range rows {
		c.printRow(row)
	}
	return nil
}

func (c *JournalCommand) printRow(row *sqlite.Transition) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	session := row.SessionID
	if len(session) > 8 {
		session = session[:8]
	}

	detail := row.Description
	if detail == "" {
		detail = row.Branch
	}
	if row.Reason != "" {
		detail = strings.TrimSpace(detail + " " + "(" + row.Reason + ")")
	}
	entry := ""
	if row.EntryID != nil {
		entry = fmt.Sprintf(" #%d", *row.EntryID)
	}
	fmt.Fprintf(c.app.out, "%s %s %-9s %s%s\n",
		row.At.Local().Format("2006-01-02 15:04:05"), gray(session), row.State, detail, entry)
}

func parseJournalArgs(args []string) (journalArgs, error) {
	var opts journalArgs
	for _, arg := range args {
		key, value, hasValue := strings.Cut(arg, "=")
		switch {
		case !hasValue:
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				return opts, errors.NewInvalidInputError("limit", arg, "must be a positive number")
			}
			opts.limit = n
		case key == "session":
			opts.sessionID = value
		case key == "prune":
			d, err := parseAge(value)
			if err != nil {
				return opts, err
			}
			opts.prune = d
		default:
			return opts, errors.NewInvalidInputError("argument", arg, "expected limit, session=<id> or prune=<age>")
		}
	}
	return opts, nil
}
