package tui

import (
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/poller"
)

// Message types for the watch view

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// PollMsg carries the outcome of one status poll
type PollMsg struct {
	Event poller.Event
}

// NotifyMsg is a user notification raised by the client layer
type NotifyMsg struct {
	Message  string
	Severity domain.Severity
}

// LoadingMsg reports the global loading flag
type LoadingMsg struct {
	Loading bool
}

// TriggeredMsg signals that a sync trigger was accepted
type TriggeredMsg struct {
	Response *domain.SyncStatusResponse
	DryRun   bool
}

// ClearNoticeMsg clears the notification line
type ClearNoticeMsg struct {
	Seq int
}
