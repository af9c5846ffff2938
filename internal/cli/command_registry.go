package cli

import (
	"context"
	"sort"
	"strings"

	"branch-tracker/internal/errors"
)

// Command represents a CLI command
type Command interface {
	Execute(ctx context.Context, args []string) error
}

// CommandFunc adapts a function to Command
type CommandFunc func(ctx context.Context, args []string) error

// Execute calls f
func (f CommandFunc) Execute(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// CommandRegistry manages a set of named commands. It backs both the
// one-shot commands and the watch prompt.
type CommandRegistry struct {
	commands map[string]Command
	usage    string
}

// NewCommandRegistry creates the registry of one-shot commands
func NewCommandRegistry(app *App) *CommandRegistry {
	registry := newRegistry("usage: bt status [dir] | bt describe [branch] | bt link <branch> <task-id> | bt task <task-id> | bt journal [limit] [session=<id>] [prune=<age>]")

	registry.Register("status", NewStatusCommand(app))
	registry.Register("describe", NewDescribeCommand(app))
	registry.Register("link", NewLinkCommand(app))
	registry.Register("task", NewTaskCommand(app))
	registry.Register("journal", NewJournalCommand(app))

	return registry
}

func newRegistry(usage string) *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]Command),
		usage:    usage,
	}
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, command Command) {
	r.commands[name] = command
}

// Has reports whether name is registered
func (r *CommandRegistry) Has(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Names returns the registered command names in order
func (r *CommandRegistry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the specified command with the given arguments
func (r *CommandRegistry) Execute(ctx context.Context, commandName string, args []string) error {
	command, exists := r.commands[strings.ToLower(commandName)]
	if !exists {
		return errors.NewInvalidInputError("command", commandName, "unknown command")
	}
	return command.Execute(ctx, args)
}

// GetUsage returns the usage string for the registry
func (r *CommandRegistry) GetUsage() string {
	return r.usage
}
