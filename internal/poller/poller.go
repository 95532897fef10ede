package poller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mmcdole/booksync/internal/domain"
)

// StatusSource fetches the current job status
type StatusSource interface {
	Status(ctx context.Context, useCache bool) (*domain.SyncStatusResponse, error)
}

// HistorySource reloads history once a job finishes
type HistorySource interface {
	RefreshHistory(ctx context.Context) (*domain.HistorySnapshot, error)
}

// Event reports the outcome of one poll
type Event struct {
	Status  *domain.SyncStatusResponse // nil when the fetch failed
	State   State                      // schedule after this poll
	History *domain.HistorySnapshot    // set when a finished job triggered a refresh
	Err     error
}

// Poller drives the status schedule. Each Poller owns its state.
type Poller struct {
	status    StatusSource
	history   HistorySource
	intervals Intervals
	clock     clockwork.Clock
	logger    *slog.Logger
	onEvent   func(Event)

	mu    sync.Mutex
	state State

	kick chan struct{}
}

// Option configures a Poller
type Option func(*Poller)

// WithIntervals overrides the fast and slow rates
func WithIntervals(iv Intervals) Option {
	return func(p *Poller) { p.intervals = iv.normalized() }
}

// WithClock overrides the time source
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithHandler receives an Event after every poll. It runs on the polling goroutine.
func WithHandler(fn func(Event)) Option {
	return func(p *Poller) { p.onEvent = fn }
}

// New creates a poller. history may be nil.
func New(status StatusSource, history HistorySource, opts ...Option) *Poller {
	p := &Poller{
		status:    status,
		history:   history,
		intervals: DefaultIntervals(),
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		onEvent:   func(Event) {},
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.state = p.intervals.Initial()
	return p
}

// State returns the current schedule
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Kick asks for an immediate poll instead of waiting out the interval.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls immediately and then after each interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	for {
		p.poll(ctx)

		timer := p.clock.NewTimer(p.State().Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		case <-p.kick:
			timer.Stop()
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	st, err := p.status.Status(ctx, false)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("status poll failed", "error", err, "interval", p.State().Interval)
		p.onEvent(Event{State: p.State(), Err: err})
		return
	}

	p.mu.Lock()
	prev := p.state
	next, refresh := p.intervals.Step(prev, st.State())
	p.state = next
	p.mu.Unlock()

	if next.Interval != prev.Interval {
		p.logger.Debug("poll interval changed", "from", prev.Interval, "to", next.Interval, "status", st.Status)
	}

	ev := Event{Status: st, State: next}
	if refresh && p.history != nil {
		snap, err := p.history.RefreshHistory(ctx)
		if err != nil {
			p.logger.Warn("history refresh failed", "error", err)
			ev.Err = err
		} else {
			ev.History = snap
		}
	}
	p.onEvent(ev)
}

// Task is a running poller
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs the poller on its own goroutine.
func (p *Poller) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		_ = p.Run(ctx)
	}()
	return t
}

// Stop cancels the task and waits for it to exit. Nothing fires after Stop returns.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the task has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}
