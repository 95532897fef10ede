package app

import (
	"sync/atomic"

	"github.com/mmcdole/booksync/internal/domain"
)

// Sink receives both client-layer signals
type Sink interface {
	domain.Notifier
	domain.LoadingObserver
}

// Relay forwards notifications and loading changes to the current sink.
// The pipeline is built once; the presentation attached to it can change
// (plain console output, then the watch view).
type Relay struct {
	sink atomic.Pointer[Sink]
}

// NewRelay creates a relay forwarding to sink
func NewRelay(sink Sink) *Relay {
	r := &Relay{}
	r.Attach(sink)
	return r
}

// Attach replaces the sink and returns the previous one
func (r *Relay) Attach(sink Sink) Sink {
	if sink == nil {
		sink = silent{}
	}
	prev := r.sink.Swap(&sink)
	if prev == nil {
		return nil
	}
	return *prev
}

func (r *Relay) current() Sink {
	if p := r.sink.Load(); p != nil {
		return *p
	}
	return silent{}
}

// Notify implements domain.Notifier
func (r *Relay) Notify(message string, severity domain.Severity) {
	r.current().Notify(message, severity)
}

// LoadingChanged implements domain.LoadingObserver
func (r *Relay) LoadingChanged(loading bool) {
	r.current().LoadingChanged(loading)
}

type silent struct {
	domain.NoOpNotifier
	domain.NoOpLoadingObserver
}
