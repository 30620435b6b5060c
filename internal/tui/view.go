package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderDashboard renders the subject dashboard.
func (m Model) renderDashboard() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderSubjectTable())

	if m.latencySource != nil && m.latencySource.StartupCount() > 0 {
		sections = append(sections, m.renderStartupLatency())
	}

	if errs := m.erroredSubjects(); len(errs) > 0 {
		sections = append(sections, m.renderErrors(errs))
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" sentryvibe-runner │ Subjects: %d/%d active │ Elapsed: %s ",
		m.ActiveSubjects(),
		len(m.subjects),
		formatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Subject Table
// =============================================================================

const (
	colID     = 20
	colState  = 12
	colPID    = 8
	colPort   = 7
	colUptime = 9
	colTunnel = 30
)

func (m Model) renderSubjectTable() string {
	var rows []string

	header := fmt.Sprintf("%-*s %-*s %*s %*s %*s %-*s",
		colID, "SUBJECT",
		colState, "STATE",
		colPID, "PID",
		colPort, "PORT",
		colUptime, "UPTIME",
		colTunnel, "TUNNEL",
	)
	rows = append(rows, tableHeaderStyle.Render(header))

	if len(m.subjects) == 0 {
		rows = append(rows, dimStyle.Render("  (no subjects registered)"))
	}

	for _, st := range m.subjects {
		pid := "-"
		if st.PID > 0 {
			pid = fmt.Sprintf("%d", st.PID)
		}
		port := "-"
		if st.Port > 0 {
			port = fmt.Sprintf("%d", st.Port)
		}
		tunnel := "-"
		if st.TunnelURL != "" {
			tunnel = truncate(st.TunnelURL, colTunnel)
		}

		// The badge carries ANSI codes, so pad it by rendered width.
		badge := StateBadge(st.State)
		pad := colState - lipgloss.Width(badge)
		if pad < 0 {
			pad = 0
		}

		row := fmt.Sprintf("%-*s %s%s %*s %*s %*s %s",
			colID, truncate(st.ID, colID),
			badge, strings.Repeat(" ", pad),
			colPID, pid,
			colPort, port,
			colUptime, formatUptime(st.Uptime),
			mutedStyle.Render(tunnel),
		)
		rows = append(rows, tableCellStyle.Render(row))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Startup Latency
// =============================================================================

func (m Model) renderStartupLatency() string {
	lines := []string{
		sectionHeaderStyle.Render("Startup Latency"),
		fmt.Sprintf("  p50: %s   p95: %s   p99: %s   (n=%d)",
			formatMs(m.latencySource.StartupQuantile(0.5)),
			formatMs(m.latencySource.StartupQuantile(0.95)),
			formatMs(m.latencySource.StartupQuantile(0.99)),
			m.latencySource.StartupCount(),
		),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// =============================================================================
// Errors
// =============================================================================

type subjectError struct {
	id  string
	msg string
}

func (m Model) erroredSubjects() []subjectError {
	var out []subjectError
	for _, st := range m.subjects {
		if st.Error != "" {
			out = append(out, subjectError{id: st.ID, msg: st.Error})
		}
	}
	return out
}

func (m Model) renderErrors(errs []subjectError) string {
	lines := []string{sectionHeaderStyle.Render("Errors")}
	for _, e := range errs {
		lines = append(lines, badgeError.Render("  ✗ ")+
			baseStyle.Render(e.id+": ")+
			mutedStyle.Render(truncate(e.msg, m.width-len(e.id)-8)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	footer := fmt.Sprintf(
		"api %s │ metrics %s │ updated %s │ [q]uit [r]efresh",
		m.listenAddr,
		m.metricsAddr,
		m.lastUpdate.Format("15:04:05"),
	)
	return footerStyle.Render(footer)
}
