// Package api is the business layer behind the one-shot commands. It answers
// questions about the working directory and the remote entry without touching
// the engine, so it is safe to use while a watch session runs elsewhere.
package api

import (
	"context"
	stderrors "errors"
	"time"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/git"
	"branch-tracker/internal/logging"
	"branch-tracker/internal/monday"
	"branch-tracker/internal/repository/sqlite"
	"branch-tracker/internal/tracker"
	"branch-tracker/internal/validation"
)

// BranchStatus is what `bt status` reports for one working directory
type BranchStatus struct {
	Dir         string              `json:"dir"`
	Branch      string              `json:"branch"`
	Allowed     bool                `json:"allowed"`
	Description tracker.Description `json:"description"`
	Running     *domain.TimeEntry   `json:"running"`
	// InSync is true when the running entry already carries the expected
	// description.
	InSync bool `json:"in_sync"`
}

// BusinessAPI defines the workflows exposed to the CLI
type BusinessAPI interface {
	// GetBranchStatus reads the branch, derives its description and fetches
	// the running remote entry.
	GetBranchStatus(ctx context.Context, dir string) (*BranchStatus, error)

	// DescribeBranch derives the description for branch, or for the
	// checked-out branch of dir when branch is empty.
	DescribeBranch(ctx context.Context, dir, branch string) (*tracker.Description, error)

	// LinkBranch records that branch was created from taskID.
	LinkBranch(ctx context.Context, branch, taskID string) (*domain.BranchTaskAssociation, error)

	// GetTaskDetails looks up the extended task record.
	GetTaskDetails(ctx context.Context, taskID string) (*monday.ItemDetails, error)

	// ListTransitions returns journal rows, newest first, or one session's
	// rows oldest first when sessionID is set.
	ListTransitions(ctx context.Context, sessionID string, limit int) ([]*sqlite.Transition, error)

	// PruneTransitions drops journal rows older than the given age.
	PruneTransitions(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RunningEntryReader is the slice of the gateway the status workflow needs
type RunningEntryReader interface {
	CurrentEntry(ctx context.Context) (*domain.TimeEntry, error)
}

// AssociationStore reads and writes the branch-task side-file
type AssociationStore interface {
	Lookup(branch string) (domain.BranchTaskAssociation, bool, error)
	Save(branch string, assoc domain.BranchTaskAssociation) error
}

// TaskDirectory looks tasks up on the project-management service
type TaskDirectory interface {
	GetItemDetails(ctx context.Context, id string) (*monday.ItemDetails, error)
}

// Deps are the collaborators of the business layer. Entries, Tasks and
// Journal may be nil when the corresponding service is not configured.
type Deps struct {
	Branches     git.BranchReader
	Describer    *tracker.Describer
	Gate         tracker.Gate
	Entries      RunningEntryReader
	Associations AssociationStore
	Tasks        TaskDirectory
	Journal      sqlite.Journal
	Now          func() time.Time
}

type businessAPIImpl struct {
	deps      Deps
	validator *validation.Validator
}

// NewBusinessAPI creates a new BusinessAPI instance
func NewBusinessAPI(deps Deps) BusinessAPI {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &businessAPIImpl{
		deps:      deps,
		validator: validation.NewValidator(),
	}
}

func (b *businessAPIImpl) GetBranchStatus(ctx context.Context, dir string) (*BranchStatus, error) {
	status := &BranchStatus{Dir: dir, Allowed: true}

	branch, err := b.deps.Branches.CurrentBranch(ctx, dir)
	if err != nil && !stderrors.Is(err, git.ErrNoBranch) {
		return nil, err
	}
	status.Branch = branch

	if b.deps.Gate != nil {
		status.Allowed = b.deps.Gate.Allowed(ctx, dir)
	}
	if branch != "" {
		status.Description = b.deps.Describer.Describe(ctx, branch)
	}

	if b.deps.Entries == nil {
		return status, nil
	}
	running, err := b.deps.Entries.CurrentEntry(ctx)
	if err != nil {
		return nil, err
	}
	status.Running = running
	status.InSync = running != nil && branch != "" && running.Description == status.Description.Text
	return status, nil
}

func (b *businessAPIImpl) DescribeBranch(ctx context.Context, dir, branch string) (*tracker.Description, error) {
	if branch == "" {
		current, err := b.deps.Branches.CurrentBranch(ctx, dir)
		if err != nil {
			if stderrors.Is(err, git.ErrNoBranch) {
				return nil, errors.NewNotFoundError("branch", dir)
			}
			return nil, err
		}
		branch = current
	}
	desc := b.deps.Describer.Describe(ctx, branch)
	return &desc, nil
}

func (b *businessAPIImpl) LinkBranch(ctx context.Context, branch, taskID string) (*domain.BranchTaskAssociation, error) {
	assoc := domain.BranchTaskAssociation{TaskID: taskID}
	if err := b.validator.ValidateAssociation(branch, assoc); err != nil {
		return nil, err
	}

	if b.deps.Tasks != nil {
		details, err := b.deps.Tasks.GetItemDetails(ctx, taskID)
		switch {
		case errors.IsErrorType(err, errors.ErrorTypeNotFound):
			return nil, err
		case err != nil:
			// The link is still useful without a title; the resolver fills
			// it in later.
			logging.Warnf("task %s lookup failed, saving link without details: %v", taskID, err)
		default:
			assoc.TaskName = details.Name
			assoc.BoardID = details.BoardID
			assoc.URL = details.URL
		}
	}

	if err := b.deps.Associations.Save(branch, assoc); err != nil {
		return nil, err
	}
	return &assoc, nil
}

func (b *businessAPIImpl) GetTaskDetails(ctx context.Context, taskID string) (*monday.ItemDetails, error) {
	if b.deps.Tasks == nil {
		return nil, errors.NewConfigurationError("monday.api_token", "task lookups need BT_MONDAY_API_TOKEN")
	}
	if taskID == "" {
		return nil, errors.NewInvalidInputError("task_id", taskID, "cannot be empty")
	}
	return b.deps.Tasks.GetItemDetails(ctx, taskID)
}

func (b *businessAPIImpl) ListTransitions(ctx context.Context, sessionID string, limit int) ([]*sqlite.Transition, error) {
	if b.deps.Journal == nil {
		return nil, errors.NewConfigurationError("storage.journal_filename", "journal is not open")
	}
	if sessionID != "" {
		return b.deps.Journal.ForSession(ctx, sessionID)
	}
	return b.deps.Journal.Recent(ctx, limit)
}

func (b *businessAPIImpl) PruneTransitions(ctx context.Context, olderThan time.Duration) (int64, error) {
	if b.deps.Journal == nil {
		return 0, errors.NewConfigurationError("storage.journal_filename", "journal is not open")
	}
	if olderThan <= 0 {
		return 0, errors.NewInvalidInputError("older_than", olderThan, "must be positive")
	}
	return b.deps.Journal.Prune(ctx, b.deps.Now().Add(-olderThan))
}
