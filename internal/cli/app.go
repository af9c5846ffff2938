package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"branch-tracker/internal/api"
	"branch-tracker/internal/association"
	"branch-tracker/internal/config"
	"branch-tracker/internal/gate"
	"branch-tracker/internal/git"
	"branch-tracker/internal/monday"
	"branch-tracker/internal/repository/sqlite"
	"branch-tracker/internal/taskname"
	"branch-tracker/internal/ticket"
	"branch-tracker/internal/toggl"
	"branch-tracker/internal/tracker"
)

// timeNow is a variable that can be replaced in tests
var timeNow = time.Now

// App represents the CLI application behind the one-shot commands
type App struct {
	businessAPI api.BusinessAPI
	config      *config.Config
	out         io.Writer
	registry    *CommandRegistry
}

// NewApp creates a new CLI application instance with dependency injection
func NewApp(businessAPI api.BusinessAPI, cfg *config.Config, out io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	app := &App{
		businessAPI: businessAPI,
		config:      cfg,
		out:         out,
	}
	app.registry = NewCommandRegistry(app)
	return app
}

// Run executes the named command with the given arguments
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", a.registry.GetUsage())
	}
	return a.registry.Execute(ctx, args[0], args[1:])
}

// Services are the concrete collaborators built from configuration
type Services struct {
	Git          *git.Reader
	Toggl        *toggl.Client
	Monday       *monday.Client
	Resolver     *taskname.Resolver
	Associations *association.Store
	Gate         *gate.OrgGate
	Describer    *tracker.Describer
	Journal      sqlite.Journal
}

// NewServices builds every collaborator the configuration allows. Toggl and
// Monday clients are only created when their tokens are set; the journal is
// opened only when withJournal is true.
func NewServices(ctx context.Context, cfg *config.Config, withJournal bool) (*Services, error) {
	gitReader, err := git.NewReader(ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := ticket.NewExtractor(cfg.Tracking.TicketPattern)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Git:          gitReader,
		Associations: association.NewStore(cfg.GetAssociationsPath(), os.FileMode(cfg.Storage.DirPermissions)),
		Gate:         gate.NewOrgGate(gitReader, cfg.Tracking.AllowedOrgs),
	}

	if cfg.Toggl.APIToken != "" {
		s.Toggl = toggl.NewClient(toggl.Options{
			APIToken:      cfg.Toggl.APIToken,
			WorkspaceID:   cfg.Toggl.WorkspaceID,
			BaseURL:       cfg.Toggl.BaseURL,
			Timeout:       cfg.Toggl.RequestTimeout,
			RatePerSecond: cfg.Toggl.RatePerSecond,
		})
	}

	var resolver tracker.TitleResolver
	if cfg.HasMonday() {
		s.Monday = monday.NewClient(cfg.Monday.APIToken, cfg.Monday.BaseURL, cfg.Monday.RequestTimeout)
		s.Resolver = taskname.NewResolver(s.Monday, taskname.NewMemoryCache(), cfg.Monday.RequestTimeout)
		resolver = s.Resolver
	}
	s.Describer = tracker.NewDescriber(extractor, resolver, s.Associations)

	if withJournal {
		journal, err := config.OpenJournal(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.Journal = journal
	}
	return s, nil
}

// BusinessAPI exposes the services to the one-shot commands
func (s *Services) BusinessAPI() api.BusinessAPI {
	deps := api.Deps{
		Branches:     s.Git,
		Describer:    s.Describer,
		Gate:         s.Gate,
		Associations: s.Associations,
		Journal:      s.Journal,
	}
	// Typed nil pointers must not leak into the interfaces.
	if s.Toggl != nil {
		deps.Entries = s.Toggl
	}
	if s.Monday != nil {
		deps.Tasks = s.Monday
	}
	return api.NewBusinessAPI(deps)
}

// Close releases the journal, if open
func (s *Services) Close() error {
	if s.Journal != nil {
		return s.Journal.Close()
	}
	return nil
}
