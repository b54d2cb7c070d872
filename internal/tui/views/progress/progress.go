// Package progress renders the scan progress bar and the device profile
// currently being tried. The bar eases toward new values with a spring.
package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/tui/theme"
)

const fps = 60

// FrameMsg advances the bar animation by one frame.
type FrameMsg struct{}

// Model holds the progress panel state.
type Model struct {
	Width  int
	Device string

	snapshot  ingest.Progress
	spring    harmonica.Spring
	pos       float64 // displayed fraction
	vel       float64
	target    float64
	animating bool
}

// New creates a progress model.
func New() Model {
	return Model{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0)}
}

// Set records a new snapshot. It returns the command that starts the
// animation, or nil if one is already running.
func (m *Model) Set(p ingest.Progress, device string) tea.Cmd {
	m.snapshot = p
	m.Device = device
	m.target = fraction(p)
	if m.animating || m.settled() {
		return nil
	}
	m.animating = true
	return frame()
}

// Update steps the animation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if m.settled() {
		m.pos, m.vel = m.target, 0
		m.animating = false
		return m, nil
	}
	return m, frame()
}

// Displayed is the fraction currently drawn, for tests.
func (m Model) Displayed() float64 { return m.pos }

func (m Model) settled() bool {
	return math.Abs(m.pos-m.target) < 0.001 && math.Abs(m.vel) < 0.001
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// fraction derives the bar position from the snapshot. Percent is what the
// scanner reported; it is used as-is and clamped only for drawing.
func fraction(p ingest.Progress) float64 {
	return math.Max(0, math.Min(float64(p.Percent)/100, 1))
}

// View renders the panel.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	label := fmt.Sprintf(" %d/%d  %3d%%", m.snapshot.Current, m.snapshot.Target, m.snapshot.Percent)
	barWidth := width - len(label) - 6
	if barWidth < 10 {
		barWidth = 10
	}

	filled := max(0, min(int(math.Round(m.pos*float64(barWidth))), barWidth))
	color := theme.ProgressColor(m.target)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", barWidth-filled))

	device := theme.StyleDimmed.Render("waiting for the scanner...")
	if m.Device != "" {
		device = theme.StyleDimmed.Render("Trying ") + theme.StyleHeader.Render(m.Device)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		bar+lipgloss.NewStyle().Foreground(color).Render(label),
		device,
	)
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
