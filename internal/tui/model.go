// Package tui is the terminal view for watching the sync job.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/poller"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

const noticeTTL = 4 * time.Second

// Model is the Bubble Tea model of the watch view
type Model struct {
	keys    KeyMap
	spinner spinner.Model
	bridge  *Bridge
	trigger Triggerer
	kick    func()
	clear   func()

	// Job state
	Status   *domain.SyncStatusResponse
	Schedule poller.State
	History  *domain.HistorySnapshot
	PollErr  error

	// UI state
	Width      int
	Loading    bool
	Triggering bool
	Notice     string
	NoticeSev  domain.Severity
	noticeSeq  int
}

// NewModel creates the watch view. kick forces an immediate poll.
func NewModel(bridge *Bridge, trigger Triggerer, kick func(), intervals poller.Intervals) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle

	if kick == nil {
		kick = func() {}
	}
	return Model{
		keys:     DefaultKeyMap(),
		spinner:  sp,
		bridge:   bridge,
		trigger:  trigger,
		kick:     kick,
		Schedule: intervals.Initial(),
	}
}

// WithClearCache sets what the clear key runs before forcing a poll
func (m Model) WithClearCache(fn func()) Model {
	m.clear = fn
	return m
}

// Init starts the spinner and the bridge listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.Listen())
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PollMsg:
		ev := msg.Event
		m.Schedule = ev.State
		if ev.Status != nil {
			m.Status = ev.Status
			m.PollErr = nil
		} else {
			m.PollErr = ev.Err
		}
		if ev.History != nil {
			m.History = ev.History
		}
		return m, m.bridge.Listen()

	case NotifyMsg:
		cmd := m.setNotice(msg.Message, msg.Severity)
		return m, tea.Batch(cmd, m.bridge.Listen())

	case LoadingMsg:
		m.Loading = msg.Loading
		return m, m.bridge.Listen()

	case TriggeredMsg:
		m.Triggering = false
		m.kick()
		switch {
		case msg.Response.AlreadyRunning():
			return m, m.setNotice("A sync is already running", domain.SeverityInfo)
		case msg.DryRun:
			return m, m.setNotice("Dry run started", domain.SeveritySuccess)
		default:
			return m, m.setNotice("Sync started", domain.SeveritySuccess)
		}

	case ErrMsg:
		m.Triggering = false
		return m, m.setNotice(domain.UserMessage(msg.Err), domain.SeverityError)

	case ClearNoticeMsg:
		if msg.Seq == m.noticeSeq {
			m.Notice = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Trigger), key.Matches(msg, m.keys.DryRun):
		if m.Triggering || m.trigger == nil {
			return m, nil
		}
		m.Triggering = true
		return m, TriggerCmd(m.trigger, key.Matches(msg, m.keys.DryRun))

	case key.Matches(msg, m.keys.Refresh):
		m.kick()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.clear == nil {
			return m, nil
		}
		m.clear()
		m.kick()
		return m, m.setNotice("Cache cleared", domain.SeverityInfo)
	}
	return m, nil
}

func (m *Model) setNotice(text string, sev domain.Severity) tea.Cmd {
	m.noticeSeq++
	m.Notice = text
	m.NoticeSev = sev
	return ClearNoticeCmd(m.noticeSeq, noticeTTL)
}

// View renders the watch view
func (m Model) View() string {
	var b strings.Builder

	state := domain.JobIdle
	if m.Status != nil {
		state = m.Status.State()
	}

	header := styles.TitleStyle.Render("booksync") + "  " + styles.Badge(state)
	if m.Loading || state == domain.JobRunning || m.Triggering {
		header += " " + m.spinner.View()
	}
	b.WriteString(header + "\n")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("polling every %s", m.Schedule.Interval)) + "\n\n")

	b.WriteString(m.renderStatus())
	b.WriteString(m.renderHistory())

	if m.PollErr != nil {
		b.WriteString(styles.ErrorStyle.Render("status unavailable: "+domain.UserMessage(m.PollErr)) + "\n")
	}
	if m.Notice != "" {
		b.WriteString(styles.ForSeverity(m.NoticeSev).Render(m.Notice) + "\n")
	}

	b.WriteString("\n" + m.renderHelp())
	return b.String()
}

func (m Model) renderStatus() string {
	if m.Status == nil {
		return styles.DimStyle.Render("waiting for status…") + "\n\n"
	}

	var b strings.Builder
	last := "never"
	if t, ok := m.Status.LastSyncTime(); ok {
		last = t.Format("2006-01-02 15:04:05")
	}
	b.WriteString(styles.SubtitleStyle.Render("last sync: ") + last + "\n")

	result := m.Status.Result()
	if len(result) > 0 {
		b.WriteString(styles.SubtitleStyle.Render("result:    ") + result.Summary().String() + "\n")
		for _, replica := range result.Replicas() {
			b.WriteString(renderReplica(replica, result[replica], m.Width))
		}
	}
	if m.Status.Details != nil && m.Status.Details.Errors != "" {
		b.WriteString(styles.ErrorStyle.Render(m.Status.Details.Errors) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func renderReplica(replica string, o domain.ReplicaOutcome, width int) string {
	name := domain.ReplicaDisplayName(replica)
	var line string
	if o.Kind == domain.OutcomeError {
		line = "  " + styles.ErrorStyle.Render("✗ "+name+": "+o.Err)
	} else {
		s := o.Stats
		line = fmt.Sprintf("  %s %s: +%d ~%d -%d (%d unchanged)",
			styles.SuccessStyle.Render("✓"), name, s.Added, s.Updated, s.Deleted, s.Unchanged)
	}
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line + "\n"
}

func (m Model) renderHistory() string {
	if m.History == nil {
		return ""
	}
	st := m.History.Stats
	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render("history:   ") +
		fmt.Sprintf("%d runs, %d ok, %d failed, avg %.1fs", st.TotalSyncs, st.SuccessfulSyncs, st.FailedSyncs, st.AverageDuration) + "\n")
	for i, e := range m.History.Entries {
		if i == 5 {
			break
		}
		mode := ""
		if e.DryRun {
			mode = " (dry run)"
		}
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  #%d %s %s%s: %s", e.ID, e.Timestamp, e.Status, mode, e.Result.Summary())) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, styles.AccentStyle.Render(h.Key)+" "+styles.DimStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
