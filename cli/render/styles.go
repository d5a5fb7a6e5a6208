package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jelly-fpga/fpgaload/types"
)

var (
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
)

var (
	// SuccessStyle marks a successful workflow.
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	// WarningStyle marks a success with incomplete cleanup.
	WarningStyle = lipgloss.NewStyle().Bold(true).Foreground(warningColor)
	// ErrorStyle marks a failed workflow.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	// MutedStyle is used for secondary detail.
	MutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// OutcomeStyle returns the style for a report outcome.
func OutcomeStyle(report *types.Report) lipgloss.Style {
	switch {
	case report.Outcome == types.OutcomeFailure:
		return ErrorStyle
	case report.CleanupError != "":
		return WarningStyle
	default:
		return SuccessStyle
	}
}

// Status returns a one-line summary such as "✔ overlay succeeded (42ms)".
func Status(report *types.Report, noColor bool) string {
	mark, verb := "✔", "succeeded"
	switch {
	case report.Outcome == types.OutcomeFailure:
		mark, verb = "✘", "failed"
		if report.Step != "" {
			verb = "failed at " + report.Step
		}
	case report.CleanupError != "":
		mark, verb = "!", "succeeded, cleanup incomplete"
	}
	head := fmt.Sprintf("%s %s %s", mark, report.Command, verb)
	tail := fmt.Sprintf("(%dms)", report.DurationMs)
	if noColor {
		return head + " " + tail
	}
	return OutcomeStyle(report).Render(head) + " " + MutedStyle.Render(tail)
}
