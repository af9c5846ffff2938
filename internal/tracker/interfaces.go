package tracker

import (
	"context"
	"time"

	"branch-tracker/internal/domain"
)

// EntryGateway is the set of operations the engine performs against the
// time-tracking service.
type EntryGateway interface {
	CurrentEntry(ctx context.Context) (*domain.TimeEntry, error)
	ListRecent(ctx context.Context, daysBack int) ([]domain.TimeEntry, error)
	Create(ctx context.Context, entry domain.NewEntry) (*domain.TimeEntry, error)
	SetRunning(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error)
	// Stop stops entryID in workspaceID; zero selects the default workspace.
	Stop(ctx context.Context, workspaceID, entryID int64) error
}

// TicketExtractor pulls a ticket identifier out of a branch name.
type TicketExtractor interface {
	Extract(branch string) (string, bool)
}

// TitleResolver turns a ticket identifier into a task title.
type TitleResolver interface {
	Resolve(ctx context.Context, ticketID string) (string, bool)
}

// AssociationLookup reads the branch-to-task side-file.
type AssociationLookup interface {
	Lookup(branch string) (domain.BranchTaskAssociation, bool, error)
}

// ActivitySource reports when the user was last active.
type ActivitySource interface {
	LastActivity() time.Time
	IdleDuration() time.Duration
}

// Gate is a precondition evaluated before every branch check.
type Gate interface {
	Allowed(ctx context.Context, dir string) bool
}

// StatusSink receives a status after every state transition. Publish is
// called with the engine lock held and must not call back into the engine.
type StatusSink interface {
	Publish(status Status)
}
