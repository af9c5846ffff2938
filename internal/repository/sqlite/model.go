package sqlite

import "time"

// Transition is one published engine status, stamped with the watch session
// that produced it.
type Transition struct {
	ID          int64
	SessionID   string
	State       string
	Branch      string
	Description string
	EntryID     *int64
	Reason      string
	At          time.Time
}
