// Package devices renders the found-device counter and the table of
// device profiles the target accepted.
package devices

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/tui/theme"
)

// Model holds the devices panel state.
type Model struct {
	Width int
	Found int
	rows  []ingest.DeviceRow
}

// New creates a devices model.
func New() Model {
	return Model{}
}

// SetRows replaces the table contents. Rows keep discovery order.
func (m *Model) SetRows(found int, rows []ingest.DeviceRow) {
	m.Found = found
	m.rows = rows
}

// View renders the counter row and the table, showing at most maxRows of
// the most recently found devices.
func (m Model) View(maxRows int) string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	counter := lipgloss.NewStyle().Foreground(theme.ColorSuccess).Bold(true).
		Render(fmt.Sprintf("Found: %d", m.Found))
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBright).
		Render("  Working devices  ") + counter

	if len(m.rows) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			theme.StyleDimmed.Render("  No working devices yet"),
		)
	}

	// Column widths (fixed layout).
	colRank := 4
	colName := 32
	colType := 12
	colID := 9

	dimStyle := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	tableHeader := fmt.Sprintf("  %-*s %-*s %-*s %-*s",
		colRank, "#",
		colName, "Name",
		colType, "Type",
		colID, "VID:PID",
	)
	lines := []string{
		header,
		dimStyle.Render(tableHeader),
		dimStyle.Render("  " + strings.Repeat("─", min(width-4, colRank+colName+colType+colID+3))),
	}

	start := 0
	if maxRows > 0 && len(m.rows) > maxRows {
		start = len(m.rows) - maxRows
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  … %d earlier", start)))
	}

	for i := start; i < len(m.rows); i++ {
		r := m.rows[i]
		rank := fmt.Sprintf("%-*d", colRank, i+1)

		name := ansi.Truncate(r.Name, colName-1, "…")
		nameStr := lipgloss.NewStyle().Foreground(theme.ColorSuccess).Width(colName).Render(name)
		typeStr := dimStyle.Width(colType).Render(r.Type)
		idStr := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colID).Render(r.VIDPID)

		lines = append(lines, fmt.Sprintf("  %s %s %s %s", rank, nameStr, typeStr, idStr))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
