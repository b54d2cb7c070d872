// Package help renders the key binding overlay. The text is markdown and
// is rendered with Glamour.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
)

// Model caches the rendered overlay for the current width.
type Model struct {
	Style string // glamour standard style name

	bindings []key.Binding
	width    int
	rendered string
}

// New creates a help overlay listing bindings.
func New(style string, bindings ...key.Binding) Model {
	if style == "" {
		style = "dark"
	}
	return Model{Style: style, bindings: bindings}
}

// Markdown returns the overlay source text.
func (m Model) Markdown() string {
	var b strings.Builder
	b.WriteString("# MacDongler dashboard\n\n")
	b.WriteString("| Key | Action |\n|-----|--------|\n")
	for _, kb := range m.bindings {
		h := kb.Help()
		if h.Key == "" {
			continue
		}
		fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
	}
	b.WriteString("\nThe progress bar shows the scanner's own counters. ")
	b.WriteString("Events already shown are never shown twice, even across reconnects.\n")
	return b.String()
}

// View renders the overlay at width, reusing the last render when the
// width is unchanged. Rendering errors fall back to the raw markdown.
func (m *Model) View(width int) string {
	if width < 20 {
		width = 20
	}
	if m.rendered != "" && m.width == width {
		return m.rendered
	}

	src := m.Markdown()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.Style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return src
	}
	out, err := r.Render(src)
	if err != nil {
		return src
	}
	m.width = width
	m.rendered = out
	return out
}
