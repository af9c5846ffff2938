package tracker

import (
	"fmt"
	"sync"
	"time"
)

// Status is the summary published after every transition.
type Status struct {
	State       State
	Branch      string
	Description string
	EntryID     *int64
	Reason      string
	At          time.Time
}

// Summary renders the status as a single line of text.
func (s Status) Summary() string {
	switch s.State {
	case StateTracking:
		return fmt.Sprintf("tracking %s", s.Description)
	case StateIdle:
		return "idle"
	case StateOnBreak:
		return fmt.Sprintf("on break: %s", s.Description)
	case StateNoRepo:
		return "no branch"
	case StateDisabled:
		if s.Reason != "" {
			return fmt.Sprintf("disabled (%s)", s.Reason)
		}
		return "disabled"
	case StateError:
		return fmt.Sprintf("error: %s", s.Reason)
	default:
		return s.State.String()
	}
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(Status)

func (f SinkFunc) Publish(status Status) { f(status) }

// FanOut publishes to every sink in order.
type FanOut []StatusSink

func (f FanOut) Publish(status Status) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(status)
		}
	}
}

// Recorder keeps every published status. Used by the status command and tests.
type Recorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *Recorder) Publish(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

// All returns a copy of the recorded statuses.
func (r *Recorder) All() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Last returns the most recent status.
func (r *Recorder) Last() (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return Status{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}

type discardSink struct{}

func (discardSink) Publish(Status) {}
