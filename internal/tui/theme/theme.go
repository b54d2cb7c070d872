// Package theme provides the Lip Gloss color palette and reusable styles
// for the dashboard TUI. It is a leaf package apart from the ingest types
// it colors.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/macdongler/dashboard/internal/ingest"
)

// Log category colors.
var (
	ColorDanger    = lipgloss.Color("#dc2626")
	ColorWarning   = lipgloss.Color("#d97706")
	ColorSuccess   = lipgloss.Color("#16a34a")
	ColorPlain     = lipgloss.Color("#e5e7eb")
	ColorSecondary = lipgloss.Color("#6b7280")
)

// Progress bar colors.
var (
	ColorProgressLow  = lipgloss.Color("#2563eb") // <50%
	ColorProgressMid  = lipgloss.Color("#06b6d4") // 50-99%
	ColorProgressDone = lipgloss.Color("#22c55e") // 100%
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#a855f7")
	ColorHealthy = lipgloss.Color("#22c55e")
)

// CategoryColor returns the color for a log record category.
func CategoryColor(c ingest.Category) lipgloss.Color {
	switch c {
	case ingest.CategoryDanger:
		return ColorDanger
	case ingest.CategoryWarning:
		return ColorWarning
	case ingest.CategorySuccess:
		return ColorSuccess
	case ingest.CategorySecondary:
		return ColorSecondary
	default:
		return ColorPlain
	}
}

// CategoryGlyph returns a one-cell marker for a log record category.
func CategoryGlyph(c ingest.Category) string {
	switch c {
	case ingest.CategoryDanger:
		return "✗"
	case ingest.CategoryWarning:
		return "!"
	case ingest.CategorySuccess:
		return "✓"
	case ingest.CategorySecondary:
		return "·"
	default:
		return "•"
	}
}

// ProgressColor returns the bar color for a completion fraction in [0,1].
func ProgressColor(frac float64) lipgloss.Color {
	switch {
	case frac >= 1:
		return ColorProgressDone
	case frac >= 0.5:
		return ColorProgressMid
	default:
		return ColorProgressLow
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent)
)
