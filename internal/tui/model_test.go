package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
	"github.com/codyde/sentryvibe-runner/internal/supervisor"
)

type staticSource struct {
	statuses []supervisor.Status
}

func (s *staticSource) List() []supervisor.Status { return s.statuses }

type staticLatency struct {
	count int64
}

func (s *staticLatency) StartupQuantile(q float64) time.Duration { return 1200 * time.Millisecond }
func (s *staticLatency) StartupCount() int64                     { return s.count }

// =============================================================================
// Update
// =============================================================================

func TestModel_TickPullsSubjects(t *testing.T) {
	src := &staticSource{statuses: []supervisor.Status{
		{ID: "web", State: snapshot.StateRunning, Port: 5173},
		{ID: "api", State: snapshot.StateStopped},
	}}
	m := New(Config{Subjects: src})

	updated, cmd := m.Update(TickMsg(time.Now()))
	m = updated.(Model)

	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if len(m.subjects) != 2 {
		t.Fatalf("got %d subjects, want 2", len(m.subjects))
	}
	if got := m.ActiveSubjects(); got != 1 {
		t.Errorf("ActiveSubjects = %d, want 1", got)
	}
}

func TestModel_QuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		t.Run(key, func(t *testing.T) {
			m := New(Config{})

			var msg tea.KeyMsg
			switch key {
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
			}

			updated, cmd := m.Update(msg)
			m = updated.(Model)

			if !m.quitting {
				t.Errorf("key %q did not set quitting", key)
			}
			if cmd == nil {
				t.Errorf("key %q returned nil cmd, want tea.Quit", key)
			}
			if m.View() != "" {
				t.Error("quitting model should render empty view")
			}
		})
	}
}

func TestModel_QuitMsg(t *testing.T) {
	m := New(Config{})
	updated, cmd := m.Update(QuitMsg{})
	m = updated.(Model)

	if !m.quitting || cmd == nil {
		t.Error("QuitMsg should quit the model")
	}
}

func TestModel_WindowResize(t *testing.T) {
	m := New(Config{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 132, Height: 40})
	m = updated.(Model)

	if m.width != 132 || m.height != 40 {
		t.Errorf("size = %dx%d, want 132x40", m.width, m.height)
	}
}

// =============================================================================
// View
// =============================================================================

func TestModel_ViewShowsSubjects(t *testing.T) {
	src := &staticSource{statuses: []supervisor.Status{
		{ID: "web", Name: "Web Frontend", State: snapshot.StateRunning, PID: 4242, Port: 5173, Uptime: 90 * time.Second},
		{ID: "api", State: snapshot.StateError, Error: "exited with code 1"},
	}}
	m := New(Config{
		ListenAddr:  "127.0.0.1:17800",
		MetricsAddr: "127.0.0.1:17801",
		Subjects:    src,
		Latency:     &staticLatency{count: 3},
	})
	updated, _ := m.Update(TickMsg(time.Now()))
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"web", "api", "5173", "4242", "running", "error", "17800", "17801"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

// =============================================================================
// Badges and Formatting
// =============================================================================

func TestStateBadge(t *testing.T) {
	tests := []struct {
		state snapshot.State
		want  string
	}{
		{snapshot.StateRunning, "running"},
		{snapshot.StateStarting, "starting"},
		{snapshot.StateError, "error"},
		{snapshot.StateStopped, "stopped"},
	}
	for _, tt := range tests {
		if got := StateBadge(tt.state); !strings.Contains(got, tt.want) {
			t.Errorf("StateBadge(%s) = %q, want substring %q", tt.state, got, tt.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "02:00:00"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a-very-long-subject-name", 10); got != "a-very-..." {
		t.Errorf("truncate long = %q", got)
	}
	if len(truncate("abcdef", 3)) != 3 {
		t.Error("truncate with max <= 3 should hard-cut")
	}
}
