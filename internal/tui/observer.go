package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/poller"
)

// Bridge adapts client-layer signals to Bubble Tea messages. It implements
// domain.Notifier and domain.LoadingObserver and is a poller handler.
type Bridge struct {
	ch chan tea.Msg

	// Loading flips are coalesced to the latest value and never dropped
	loading      atomic.Bool
	loadingReady chan struct{}
}

// NewBridge creates a bridge with a buffer of size messages
func NewBridge(size int) *Bridge {
	if size <= 0 {
		size = 64
	}
	return &Bridge{
		ch:           make(chan tea.Msg, size),
		loadingReady: make(chan struct{}, 1),
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default: // Non-blocking if channel full
	}
}

// Notify implements domain.Notifier
func (b *Bridge) Notify(message string, severity domain.Severity) {
	b.send(NotifyMsg{Message: message, Severity: severity})
}

// LoadingChanged implements domain.LoadingObserver
func (b *Bridge) LoadingChanged(loading bool) {
	b.loading.Store(loading)
	select {
	case b.loadingReady <- struct{}{}:
	default: // a pending signal will read the new value
	}
}

// OnPoll forwards poller events
func (b *Bridge) OnPoll(ev poller.Event) {
	b.send(PollMsg{Event: ev})
}

// Listen waits for the next bridged message
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.loadingReady:
			return LoadingMsg{Loading: b.loading.Load()}
		case msg := <-b.ch:
			return msg
		}
	}
}
