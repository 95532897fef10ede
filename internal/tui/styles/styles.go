package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/booksync/internal/domain"
)

// Color palette
var (
	Amber     = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
	Blue      = lipgloss.Color("#3B82F6")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Blue)
)

// Panel wraps a section of the watch view
var Panel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(DimGray).
	Padding(0, 1)

// Job state badges
var (
	RunningBadge = lipgloss.NewStyle().
			Foreground(White).
			Background(Amber).
			Padding(0, 1).
			Render("RUNNING")

	IdleBadge = lipgloss.NewStyle().
			Foreground(White).
			Background(DimGray).
			Padding(0, 1).
			Render("IDLE")
)

// Badge renders the badge for a job state
func Badge(state domain.JobState) string {
	if state == domain.JobRunning {
		return RunningBadge
	}
	return IdleBadge
}

// ForSeverity picks the text style for a notification
func ForSeverity(sev domain.Severity) lipgloss.Style {
	switch sev {
	case domain.SeverityError:
		return ErrorStyle
	case domain.SeveritySuccess:
		return SuccessStyle
	default:
		return InfoStyle
	}
}

// Truncate shortens s to width cells, ending with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
