// Package activity tracks when the user last did something in the working tree.
package activity

import (
	"sync/atomic"
	"time"
)

// Monitor holds the last-activity timestamp. Safe for concurrent use.
type Monitor struct {
	last atomic.Int64 // unix nanoseconds
	now  func() time.Time
}

// NewMonitor returns a monitor whose last activity is now.
func NewMonitor() *Monitor {
	return NewMonitorWithClock(time.Now)
}

// NewMonitorWithClock returns a monitor driven by now.
func NewMonitorWithClock(now func() time.Time) *Monitor {
	m := &Monitor{now: now}
	m.last.Store(now().UnixNano())
	return m
}

// RecordActivity moves the last-activity timestamp to now. It never moves
// backwards, even if calls race or the clock steps back.
func (m *Monitor) RecordActivity() {
	ts := m.now().UnixNano()
	for {
		prev := m.last.Load()
		if ts <= prev {
			return
		}
		if m.last.CompareAndSwap(prev, ts) {
			return
		}
	}
}

// LastActivity returns the most recent recorded activity.
func (m *Monitor) LastActivity() time.Time {
	return time.Unix(0, m.last.Load())
}

// IdleDuration returns how long ago the last activity was.
func (m *Monitor) IdleDuration() time.Duration {
	d := m.now().Sub(m.LastActivity())
	if d < 0 {
		return 0
	}
	return d
}
