package logview

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/macdongler/dashboard/internal/event"
	"github.com/macdongler/dashboard/internal/ingest"
)

func bookWith(n int) *ingest.Logbook {
	b := ingest.NewLogbook()
	for i := 0; i < n; i++ {
		b.Append(int64(1000+i), event.LevelInfo, "msg")
	}
	return b
}

func TestNextCyclesTabs(t *testing.T) {
	m := New()
	want := []ingest.View{ingest.ViewErrors, ingest.ViewWarnings, ingest.ViewAll}
	for _, w := range want {
		m.Next()
		if m.Active != w {
			t.Fatalf("Next() = %v, want %v", m.Active, w)
		}
	}
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	book := bookWith(20)

	m.ScrollUp(5, book)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}

	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}

	m.ScrollDown(10) // shouldn't go below 0
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
}

func TestScrollUpCapped(t *testing.T) {
	m := New()
	m.ScrollUp(100, bookWith(5))
	if m.Offset != 4 { // max is len-1
		t.Errorf("expected offset 4, got %d", m.Offset)
	}

	m.ScrollUp(3, bookWith(0))
	if m.Offset != 0 {
		t.Errorf("empty view should pin offset to 0, got %d", m.Offset)
	}
}

func TestSelectResetsScroll(t *testing.T) {
	m := New()
	m.ScrollUp(3, bookWith(10))
	m.Select(ingest.ViewErrors)
	if m.Offset != 0 {
		t.Error("switching tabs should reset scroll to 0")
	}
}

func TestViewEmpty(t *testing.T) {
	v := New().View(ingest.NewLogbook(), 80, 20)
	if !strings.Contains(v, "Nothing logged") {
		t.Error("empty view should show 'Nothing logged' message")
	}
}

func TestViewNewestFirst(t *testing.T) {
	b := ingest.NewLogbook()
	b.Append(1, event.LevelInfo, "older line")
	b.Append(2, event.LevelError, "newer line")

	v := New().View(b, 80, 20)
	older := strings.Index(v, "older line")
	newer := strings.Index(v, "newer line")
	if older < 0 || newer < 0 {
		t.Fatalf("view missing records:\n%s", v)
	}
	if newer > older {
		t.Error("newest record should be rendered first")
	}
}

func TestViewTabs(t *testing.T) {
	b := ingest.NewLogbook()
	b.Append(1, event.LevelError, "boom")
	b.Append(2, event.LevelWarning, "careful")

	m := New()
	v := m.View(b, 80, 20)
	for _, want := range []string{"log (2)", "errors (1)", "warnings (1)"} {
		if !strings.Contains(v, want) {
			t.Errorf("tab bar should contain %q", want)
		}
	}

	m.Select(ingest.ViewErrors)
	v = m.View(b, 80, 20)
	if !strings.Contains(v, "boom") || strings.Contains(v, "careful") {
		t.Error("errors tab should list only error records")
	}
}

func TestRenderRecordTruncatesByCell(t *testing.T) {
	line := renderRecord(ingest.Record{Timestamp: 1, Text: strings.Repeat("é", 40)}, 30)
	if !utf8.ValidString(line) {
		t.Fatalf("truncated line is not valid UTF-8: %q", line)
	}
	if !strings.Contains(line, strings.Repeat("é", 15)+"...") {
		t.Errorf("want 15 runes then an ellipsis, got %q", line)
	}

	short := renderRecord(ingest.Record{Timestamp: 1, Text: "Gerät gefunden"}, 30)
	if !strings.Contains(short, "Gerät gefunden") || strings.Contains(short, "...") {
		t.Errorf("text that fits must not be cut: %q", short)
	}
}
