// Package tui provides a live terminal dashboard for the runner daemon.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It displays the supervised subjects with their lifecycle state,
// bound port, tunnel URL and uptime, plus startup latency percentiles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	baseStyle = lipgloss.NewStyle().
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder).
				MarginTop(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// Table Styles
// =============================================================================

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	tableCellStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingRight(2)
)

// =============================================================================
// State Badge Styles
// =============================================================================

var (
	badgeRunning = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	badgeStarting = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	badgeStopped = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Bold(true)

	badgeError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	badgeInfo = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)
)

// StateBadge returns a styled badge for a subject lifecycle state.
func StateBadge(st snapshot.State) string {
	switch st {
	case snapshot.StateRunning:
		return badgeRunning.Render("● running")
	case snapshot.StateStarting:
		return badgeStarting.Render("◐ starting")
	case snapshot.StateError:
		return badgeError.Render("✗ error")
	case snapshot.StateStopped:
		return badgeStopped.Render("○ stopped")
	default:
		return badgeInfo.Render(st.String())
	}
}

// StateStyle returns the style used for a state's table row accents.
func StateStyle(st snapshot.State) lipgloss.Style {
	switch st {
	case snapshot.StateRunning:
		return badgeRunning
	case snapshot.StateStarting:
		return badgeStarting
	case snapshot.StateError:
		return badgeError
	default:
		return badgeStopped
	}
}
