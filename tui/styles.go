// ABOUTME: Defines lipgloss style constants for the TUI stage list, prompt input, and history.
// ABOUTME: Provides StyleForStatus to map StageStatus values to their corresponding display styles.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Stage status colors
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	HistoryHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("75")).
				Bold(true)

	PromptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// SpinnerFrames are the animation frames for running stages.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StyleForStatus returns the appropriate lipgloss style for a StageStatus.
func StyleForStatus(status StageStatus) lipgloss.Style {
	switch status {
	case StagePending:
		return PendingStyle
	case StageRunning:
		return RunningStyle
	case StageCompleted:
		return CompletedStyle
	case StageFailed:
		return FailedStyle
	default:
		return PendingStyle
	}
}
