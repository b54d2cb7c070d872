// Package logview renders the scanner's log as a tabbed, scrollable panel:
// the general log plus the errors and warnings views, newest first.
package logview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/tui/theme"
)

var tabs = []ingest.View{ingest.ViewAll, ingest.ViewErrors, ingest.ViewWarnings}

// Model holds the selected tab and scroll position. Records live in the
// session's Logbook; the view only reads them.
type Model struct {
	Active ingest.View
	Offset int // records skipped from the newest end
}

// New creates a log view on the general log.
func New() Model {
	return Model{Active: ingest.ViewAll}
}

// Select switches tabs and scrolls back to the newest record.
func (m *Model) Select(v ingest.View) {
	m.Active = v
	m.Offset = 0
}

// Next cycles to the following tab.
func (m *Model) Next() {
	for i, v := range tabs {
		if v == m.Active {
			m.Select(tabs[(i+1)%len(tabs)])
			return
		}
	}
	m.Select(ingest.ViewAll)
}

// ScrollUp moves toward older records.
func (m *Model) ScrollUp(n int, book *ingest.Logbook) {
	m.Offset += n
	limit := book.Len(m.Active) - 1
	if limit < 0 {
		limit = 0
	}
	if m.Offset > limit {
		m.Offset = limit
	}
}

// ScrollDown moves toward newer records.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// panelStyle returns the shared border style for the log panel.
func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the panel for book within width x height cells.
func (m Model) View(book *ingest.Logbook, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 4
	if visibleLines < 3 {
		visibleLines = 3
	}

	header := m.renderTabs(book)

	total := book.Len(m.Active)
	if total == 0 {
		body := theme.StyleDimmed.Render("  Nothing logged yet.")
		return panelStyle(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
	}

	records := book.Newest(m.Active, m.Offset+visibleLines)
	if m.Offset < len(records) {
		records = records[m.Offset:]
	} else {
		records = nil
	}

	lines := make([]string, 0, len(records)+1)
	for _, r := range records {
		lines = append(lines, renderRecord(r, innerW))
	}
	if m.Offset > 0 {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↑ %d newer", m.Offset)))
	}

	return panelStyle(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")))
}

func (m Model) renderTabs(book *ingest.Logbook) string {
	parts := make([]string, 0, len(tabs))
	for _, v := range tabs {
		label := fmt.Sprintf(" %s (%d) ", v, book.Len(v))
		if v == m.Active {
			parts = append(parts, theme.StyleSelected.Render(label))
		} else {
			parts = append(parts, theme.StyleDimmed.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func renderRecord(r ingest.Record, width int) string {
	color := theme.CategoryColor(r.Category)
	ts := theme.StyleDimmed.Render(r.Time().Format("15:04:05"))
	glyph := lipgloss.NewStyle().Foreground(color).Render(theme.CategoryGlyph(r.Category))

	text := r.Text
	if limit := width - 12; limit > 3 {
		text = ansi.Truncate(text, limit, "...")
	}
	return fmt.Sprintf("%s %s %s", ts, glyph, lipgloss.NewStyle().Foreground(color).Render(text))
}
