// Package tui provides the Bubble Tea preview pager for the accord CLI.
//
// TUI rules:
//   - TUI is opt-in only (preview --tui)
//   - TUI is read-only
//   - TUI shows the same preview payload as non-TUI rendering
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	warningColor = lipgloss.Color("#F59E0B") // Amber
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for TUI components.
var (
	// TitleStyle for the pager header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	// NoticeStyle for the markdown-only preview notice.
	NoticeStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Padding(0, 1)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	// RuleStyle for the separators around the document.
	RuleStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)
