package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"branch-tracker/internal/config"
)

// ServicesFactory builds the collaborators for a command. Replaced in tests.
type ServicesFactory func(ctx context.Context, cfg *config.Config, withJournal bool) (*Services, error)

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd         *cobra.Command
	config      *config.Config
	loader      *config.Loader
	out         io.Writer
	newServices ServicesFactory
}

// NewRootCommand creates the root cobra command with global flags
func NewRootCommand(cfg *config.Config) *RootCommand {
	root := &RootCommand{
		config:      cfg,
		out:         os.Stdout,
		newServices: NewServices,
	}

	root.cmd = &cobra.Command{
		Use:   "bt",
		Short: "Keep a time entry running for the checked-out git branch",
		Long: `Branch Tracker (bt) watches a git working directory and keeps exactly one
Toggl time entry running for the branch you have checked out.

The entry description is the Monday task title when the branch names a task
(a run of six or more digits, or a branch linked with 'bt link'), otherwise
"[ticket] branch", otherwise the branch name. Switching back to a branch
within a few minutes continues its previous entry instead of creating a new one.

EXAMPLES:
  bt watch                                 # Track the current directory
  bt status                                # Branch, expected description, running entry
  bt describe feature/123456-login         # Show the description for a branch
  bt link fix-login 123456                 # Link a branch to a task
  bt task 123456                           # Show a task
  bt journal 50                            # Last 50 recorded transitions

CONFIGURATION:
  Priority: command-line flags > environment variables > ~/.bt/config.yaml > defaults

  BT_TOGGL_API_TOKEN, BT_TOGGL_WORKSPACE_ID  Toggl credentials (required for watch)
  BT_MONDAY_API_TOKEN                        Monday token (optional, enables titles)
  BT_TICKET_PATTERN                          Ticket regex (default: (\d{6,}))
  BT_IDLE_TIMEOUT                            Stop after this much inactivity (default: 15m)
  BT_CONTINUE_WINDOW                         Continue entries stopped this recently (default: 10m)
  BT_ALLOWED_ORGS                            Comma separated git remote owners to track
  BT_DATA_DIR                                Data directory (default: ~/.bt)
  BT_CONFIG                                  Config file path
  BT_DEBUG                                   Print debug output`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.getConfigFromFlags()
		},
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// NewRootCommandWithLoader defers loading configuration until a command runs,
// so flags are applied and validated together with the file and environment.
func NewRootCommandWithLoader(loader *config.Loader) *RootCommand {
	root := NewRootCommand(config.NewConfig())
	root.loader = loader
	return root
}

// Execute runs the root command
func (r *RootCommand) Execute(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// SetArgs sets the arguments for the next Execute
func (r *RootCommand) SetArgs(args []string) {
	r.cmd.SetArgs(args)
}

// SetOutput redirects command output
func (r *RootCommand) SetOutput(out io.Writer) {
	r.out = out
	r.cmd.SetOut(out)
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	// Tracking configuration
	flags.Bool("enabled", true, "Start with tracking enabled (overrides BT_ENABLED)")
	flags.String("ticket-pattern", "", "Ticket regex (overrides BT_TICKET_PATTERN)")
	flags.Duration("idle-timeout", 0, "Idle timeout (overrides BT_IDLE_TIMEOUT)")
	flags.Duration("branch-interval", 0, "Branch check interval (overrides BT_BRANCH_INTERVAL)")
	flags.Duration("idle-interval", 0, "Idle check interval (overrides BT_IDLE_INTERVAL)")
	flags.Duration("continue-window", 0, "Continuation window (overrides BT_CONTINUE_WINDOW)")
	flags.StringSlice("allowed-orgs", nil, "Git remote owners to track (overrides BT_ALLOWED_ORGS)")

	// Service configuration
	flags.Int64("workspace", 0, "Toggl workspace id (overrides BT_TOGGL_WORKSPACE_ID)")
	flags.String("toggl-url", "", "Toggl API base URL (overrides BT_TOGGL_BASE_URL)")
	flags.String("monday-url", "", "Monday API URL (overrides BT_MONDAY_BASE_URL)")

	// Storage configuration
	flags.String("data-dir", "", "Data directory (overrides BT_DATA_DIR)")

	// Application configuration
	flags.Duration("app-timeout", 0, "Timeout for one-shot commands (overrides BT_APP_TIMEOUT)")
	flags.Bool("verbose", false, "Enable verbose output (overrides BT_APP_VERBOSE)")
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	watchCmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Track the branch checked out in a directory",
		Long: `Watch a working directory and keep one time entry running for its branch.

The prompt accepts: status, focus, break [label], resume, pause, enable, help, quit.
Quitting leaves the running entry running; 'pause' first to stop it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := r.newServices(cmd.Context(), r.config, true)
			if err != nil {
				return err
			}
			defer services.Close()
			return NewWatchCommand(r.config, services, r.out).Execute(cmd.Context(), args)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status [dir]",
		Short: "Show the branch, expected description and running entry",
		Args:  cobra.MaximumNArgs(1),
		RunE:  r.oneShot("status", false),
	}

	describeCmd := &cobra.Command{
		Use:   "describe [branch]",
		Short: "Show the entry description for a branch",
		Long:  "Derive the entry description for the given branch, or the checked-out one, without touching Toggl.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  r.oneShot("describe", false),
	}

	linkCmd := &cobra.Command{
		Use:   "link <branch> <task-id>",
		Short: "Link a branch to a task",
		Long: `Record that a branch was created from a task. The link is used when the
branch name itself carries no ticket number.`,
		Args: cobra.ExactArgs(2),
		RunE: r.oneShot("link", false),
	}

	taskCmd := &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show a Monday task",
		Args:  cobra.ExactArgs(1),
		RunE:  r.oneShot("task", false),
	}

	journalCmd := &cobra.Command{
		Use:   "journal [limit] [session=<id>] [prune=<age>]",
		Short: "List or prune recorded transitions",
		Long: `List the transitions recorded by watch sessions, newest first.

Examples:
  bt journal                 # Last 20 transitions
  bt journal 100             # Last 100 transitions
  bt journal session=3f2a... # One session, oldest first
  bt journal prune=30d       # Delete transitions older than 30 days`,
		Args: cobra.MaximumNArgs(3),
		RunE: r.oneShot("journal", true),
	}

	r.cmd.AddCommand(
		watchCmd,
		statusCmd,
		describeCmd,
		linkCmd,
		taskCmd,
		journalCmd,
	)
}

// oneShot runs a registry command with the application timeout
func (r *RootCommand) oneShot(name string, withJournal bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), r.getAppTimeout())
		defer cancel()

		services, err := r.newServices(ctx, r.config, withJournal)
		if err != nil {
			return err
		}
		defer services.Close()

		app := NewApp(services.BusinessAPI(), r.config, r.out)
		return app.Run(ctx, append([]string{name}, args...))
	}
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.config != nil && r.config.Application.Timeout > 0 {
		return r.config.Application.Timeout
	}
	return 30 * time.Second
}

// getConfigFromFlags applies flags the user set on top of the loaded
// configuration and re-validates it
func (r *RootCommand) getConfigFromFlags() error {
	overrides := r.overridesFromFlags()

	if r.loader != nil {
		cfg, err := r.loader.LoadWithOverrides(overrides)
		if err != nil {
			return err
		}
		r.config = cfg
		return nil
	}

	if r.config == nil {
		return fmt.Errorf("configuration not initialized")
	}
	config.ApplyOverrides(r.config, overrides)
	return r.config.Validate()
}

func (r *RootCommand) overridesFromFlags() *config.ConfigOverrides {
	flags := r.cmd.PersistentFlags()
	overrides := &config.ConfigOverrides{}

	if flags.Changed("enabled") {
		v, _ := flags.GetBool("enabled")
		overrides.Enabled = &v
	}
	if v, _ := flags.GetString("ticket-pattern"); v != "" {
		overrides.TicketPattern = &v
	}
	if v, _ := flags.GetDuration("idle-timeout"); v > 0 {
		overrides.IdleTimeout = &v
	}
	if v, _ := flags.GetDuration("branch-interval"); v > 0 {
		overrides.BranchInterval = &v
	}
	if v, _ := flags.GetDuration("idle-interval"); v > 0 {
		overrides.IdleInterval = &v
	}
	if v, _ := flags.GetDuration("continue-window"); v > 0 {
		overrides.ContinueWindow = &v
	}
	if v, _ := flags.GetStringSlice("allowed-orgs"); len(v) > 0 {
		overrides.AllowedOrgs = v
	}

	if v, _ := flags.GetInt64("workspace"); v > 0 {
		overrides.WorkspaceID = &v
	}
	if v, _ := flags.GetString("toggl-url"); v != "" {
		overrides.TogglURL = &v
	}
	if v, _ := flags.GetString("monday-url"); v != "" {
		overrides.MondayURL = &v
	}

	if v, _ := flags.GetString("data-dir"); v != "" {
		overrides.DataDir = &v
	}

	if v, _ := flags.GetDuration("app-timeout"); v > 0 {
		overrides.Timeout = &v
	}
	if v, _ := flags.GetBool("verbose"); v {
		overrides.Verbose = &v
	}

	return overrides
}
