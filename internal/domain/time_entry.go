package domain

import (
	"time"
)

// RunningDuration is the duration the time-tracking service reports for an
// entry that has not been stopped.
const RunningDuration int64 = -1

// TimeEntry is the local mirror of an entry owned by the time-tracking service.
type TimeEntry struct {
	ID          int64
	WorkspaceID int64
	ProjectID   *int64
	Description string
	Tags        []string
	Billable    bool
	Start       time.Time
	Stop        *time.Time
	DurationSec int64 // negative while running
}

// IsRunning returns true if the entry has no stop time.
func (te TimeEntry) IsRunning() bool {
	return te.Stop == nil || te.DurationSec < 0
}

// HasAssignment reports whether the entry carries a project or tags worth
// copying onto a new entry with the same description.
func (te TimeEntry) HasAssignment() bool {
	return te.ProjectID != nil || len(te.Tags) > 0
}

// StoppedWithin reports whether the entry stopped no more than window before now.
func (te TimeEntry) StoppedWithin(now time.Time, window time.Duration) bool {
	if te.IsRunning() {
		return false
	}
	return now.Sub(*te.Stop) < window
}

// Duration returns the elapsed time of the entry, up to now if it is running.
func (te TimeEntry) Duration(now time.Time) time.Duration {
	if te.IsRunning() {
		return now.Sub(te.Start)
	}
	return te.Stop.Sub(te.Start)
}

// NewEntry carries the fields needed to create a running entry.
type NewEntry struct {
	WorkspaceID int64
	Description string
	ProjectID   *int64
	Tags        []string
	Billable    bool
	Start       time.Time
}
