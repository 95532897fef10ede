package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/booksync/internal/domain"
)

// Triggerer starts sync runs
type Triggerer interface {
	Trigger(ctx context.Context, dryRun bool) (*domain.SyncStatusResponse, error)
}

const triggerTimeout = 2 * time.Minute

// TriggerCmd starts a sync run
func TriggerCmd(svc Triggerer, dryRun bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()

		resp, err := svc.Trigger(ctx, dryRun)
		if err != nil {
			return ErrMsg{Err: err, Context: "triggering sync"}
		}
		return TriggeredMsg{Response: resp, DryRun: dryRun}
	}
}

// ClearNoticeCmd clears the notification line after a delay unless a newer one replaced it
func ClearNoticeCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Seq: seq}
	})
}
