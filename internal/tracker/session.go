package tracker

import "time"

// State is the engine's externally visible mode.
type State int

const (
	StateDisabled State = iota
	StateNoRepo
	StateIdle
	StateTracking
	StateOnBreak
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateNoRepo:
		return "no_repo"
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateOnBreak:
		return "on_break"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StoppedEntry is the one-slot memory of the last entry this session stopped.
type StoppedEntry struct {
	EntryID     int64
	WorkspaceID int64
	Description string
	Start       time.Time
	StoppedAt   time.Time
}

// BreakSnapshot is taken when a break starts.
type BreakSnapshot struct {
	EntryID     *int64
	Description string
	Branch      string
}

// Session is the engine's belief about what is running. The remote service
// is authoritative; CurrentEntryID is a cache refreshed whenever a
// transition is about to happen.
type Session struct {
	// CurrentBranch is the last branch acted on. Empty forces re-evaluation.
	CurrentBranch string

	CurrentEntryID     *int64
	CurrentDescription string
	currentStart       time.Time
	currentWorkspace   int64

	IsTrackingEnabled bool
	IsOnBreak         bool
	BreakEntryID      *int64
	BreakLabel        string
	breakWorkspace    int64

	LastStopped *StoppedEntry
	PreBreak    *BreakSnapshot

	// PausedAt is set while an idle pause is in effect.
	PausedAt *time.Time

	State  State
	Reason string
}

// IsRunning reports whether an entry is believed to be running.
func (s *Session) IsRunning() bool {
	return s.CurrentEntryID != nil
}

func (s *Session) clone() Session {
	c := *s
	if s.CurrentEntryID != nil {
		id := *s.CurrentEntryID
		c.CurrentEntryID = &id
	}
	if s.BreakEntryID != nil {
		id := *s.BreakEntryID
		c.BreakEntryID = &id
	}
	if s.LastStopped != nil {
		ls := *s.LastStopped
		c.LastStopped = &ls
	}
	if s.PreBreak != nil {
		pb := *s.PreBreak
		if pb.EntryID != nil {
			id := *pb.EntryID
			pb.EntryID = &id
		}
		c.PreBreak = &pb
	}
	if s.PausedAt != nil {
		p := *s.PausedAt
		c.PausedAt = &p
	}
	return c
}
