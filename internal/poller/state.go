// Package poller tracks the server's sync job by polling its status,
// quickly while a job runs and slowly otherwise.
package poller

import (
	"time"

	"github.com/mmcdole/booksync/internal/domain"
)

const (
	// DefaultFastInterval is used while a job is running
	DefaultFastInterval = 2 * time.Second

	// DefaultSlowInterval is used while idle
	DefaultSlowInterval = 5 * time.Second
)

// Intervals are the two polling rates
type Intervals struct {
	Fast time.Duration
	Slow time.Duration
}

// DefaultIntervals returns 2s / 5s
func DefaultIntervals() Intervals {
	return Intervals{Fast: DefaultFastInterval, Slow: DefaultSlowInterval}
}

func (iv Intervals) normalized() Intervals {
	if iv.Fast <= 0 {
		iv.Fast = DefaultFastInterval
	}
	if iv.Slow <= 0 {
		iv.Slow = DefaultSlowInterval
	}
	return iv
}

// State is the schedule owned by one poller
type State struct {
	Interval  time.Duration
	LastKnown domain.JobState
}

// Initial is the state before the first observation: slow, idle
func (iv Intervals) Initial() State {
	return State{Interval: iv.normalized().Slow, LastKnown: domain.JobIdle}
}

// Step applies one observation. A running job switches to the fast rate; the
// first idle observation after a running one switches back to slow and asks
// the caller to refresh history. Any other idle observation changes nothing.
func (iv Intervals) Step(s State, observed domain.JobState) (next State, refresh bool) {
	iv = iv.normalized()

	if observed == domain.JobRunning {
		return State{Interval: iv.Fast, LastKnown: domain.JobRunning}, false
	}
	if s.LastKnown == domain.JobRunning {
		return State{Interval: iv.Slow, LastKnown: domain.JobIdle}, true
	}
	return State{Interval: s.Interval, LastKnown: domain.JobIdle}, false
}

// Step applies an observation using the default intervals
func Step(s State, observed domain.JobState) (State, bool) {
	return DefaultIntervals().Step(s, observed)
}
