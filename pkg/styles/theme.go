// Package styles centralizes terminal color and style definitions.
// Adaptive colors keep output readable on both light and dark backgrounds.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// ColorError marks failures and conflicts.
	ColorError = lipgloss.AdaptiveColor{Light: "#D73737", Dark: "#FF5555"}

	// ColorWarning marks drift and other cautionary findings.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#E67E22", Dark: "#FFB86C"}

	// ColorSuccess marks clean results and completed writes.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#27AE60", Dark: "#50FA7B"}

	// ColorInfo marks neutral informational lines.
	ColorInfo = lipgloss.AdaptiveColor{Light: "#2980B9", Dark: "#8BE9FD"}

	// ColorPath highlights file paths and command names.
	ColorPath = lipgloss.AdaptiveColor{Light: "#8E44AD", Dark: "#BD93F9"}

	// ColorMuted is for secondary detail such as hints and counts.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#6C7A89", Dark: "#6272A4"}
)

var (
	Error   = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	Warning = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	Success = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)
	Info    = lipgloss.NewStyle().Foreground(ColorInfo)
	Path    = lipgloss.NewStyle().Foreground(ColorPath)
	Muted   = lipgloss.NewStyle().Foreground(ColorMuted)
)
