package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"branch-tracker/internal/logging"
	"branch-tracker/internal/repository/sqlite"
	"branch-tracker/internal/tracker"
)

const journalWriteTimeout = 2 * time.Second

// ConsoleSink prints one colored line per published status
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a sink writing to out
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Publish implements tracker.StatusSink
func (s *ConsoleSink) Publish(status tracker.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(s.out, "%s %s\n", gray(status.At.Local().Format("15:04:05")), stateColor(status.State)(status.Summary()))
}

func stateColor(state tracker.State) func(a ...interface{}) string {
	switch state {
	case tracker.StateTracking:
		return color.New(color.FgGreen).SprintFunc()
	case tracker.StateOnBreak, tracker.StateIdle:
		return color.New(color.FgYellow).SprintFunc()
	case tracker.StateError:
		return color.New(color.FgRed).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

// JournalSink appends published statuses to the transition journal. Publish
// never blocks: statuses are queued and written by Run. When the queue is
// full the status is dropped with a warning.
type JournalSink struct {
	journal   sqlite.Journal
	sessionID string
	queue     chan tracker.Status
}

// NewJournalSink creates a sink stamping every row with sessionID
func NewJournalSink(journal sqlite.Journal, sessionID string, buffer int) *JournalSink {
	if buffer <= 0 {
		buffer = 64
	}
	return &JournalSink{
		journal:   journal,
		sessionID: sessionID,
		queue:     make(chan tracker.Status, buffer),
	}
}

// SessionID returns the id stamped on rows
func (s *JournalSink) SessionID() string {
	return s.sessionID
}

// Publish implements tracker.StatusSink
func (s *JournalSink) Publish(status tracker.Status) {
	select {
	case s.queue <- status:
	default:
		logging.Warnf("journal queue full, dropping %s transition", status.State)
	}
}

// Run writes queued statuses until ctx is done, then flushes what is left
func (s *JournalSink) Run(ctx context.Context) {
	for {
		select {
		case status := <-s.queue:
			s.write(status)
		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *JournalSink) flush() {
	for {
		select {
		case status := <-s.queue:
			s.write(status)
		default:
			return
		}
	}
}

// write uses its own deadline so rows queued before shutdown still land.
func (s *JournalSink) write(status tracker.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()

	row := &sqlite.Transition{
		SessionID:   s.sessionID,
		State:       status.State.String(),
		Branch:      status.Branch,
		Description: status.Description,
		EntryID:     status.EntryID,
		Reason:      status.Reason,
		At:          status.At,
	}
	if err := s.journal.Append(ctx, row); err != nil {
		logging.Warnf("journal write failed: %v", err)
	}
}
