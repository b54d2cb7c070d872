// Package status renders the one-line connection bar at the top of the
// dashboard.
package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/macdongler/dashboard/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Transport string
	Server    string
	Watermark int64
	Seen      int
	Found     int
	LastError string
	BootTime  time.Time
	Width     int
}

// New creates a status bar model.
func New(server, transport string) Model {
	return Model{Server: server, Transport: transport}
}

// SetSession copies the counters shown on the right of the bar.
func (m *Model) SetSession(watermark int64, seen, found int) {
	m.Watermark = watermark
	m.Seen = seen
	m.Found = found
}

// Fail marks the last fetch as failed. The bar keeps the error until the
// next successful fetch.
func (m *Model) Fail(err error) {
	m.Connected = false
	m.LastError = err.Error()
}

// Succeed marks the last fetch as successful.
func (m *Model) Succeed() {
	m.Connected = true
	m.LastError = ""
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	switch {
	case m.Connected:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	case m.LastError != "":
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Retrying")
	default:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + theme.StyleDimmed.Render(fmt.Sprintf("%s (%s)", m.Server, m.Transport))

	wm := "-"
	if m.Watermark > 0 {
		wm = time.Unix(m.Watermark, 0).Format("15:04:05")
	}
	content += sep + fmt.Sprintf("found %d  seen %d  last %s", m.Found, m.Seen, wm)

	if !m.BootTime.IsZero() {
		content += sep + theme.StyleDimmed.Render("up since "+m.BootTime.Format("Jan 2 15:04"))
	}
	if m.LastError != "" {
		errText := m.LastError
		if limit := width / 3; limit > 8 && len(errText) > limit {
			errText = errText[:limit-3] + "..."
		}
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(errText)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
