package ingest

import (
	"time"

	"github.com/macdongler/dashboard/internal/event"
)

// View selects one of the log destinations.
type View int

const (
	ViewAll View = iota
	ViewErrors
	ViewWarnings

	numViews
)

func (v View) String() string {
	switch v {
	case ViewAll:
		return "log"
	case ViewErrors:
		return "errors"
	case ViewWarnings:
		return "warnings"
	default:
		return "unknown"
	}
}

// Category is the display class of a record.
type Category string

const (
	CategoryDanger    Category = "danger"
	CategoryWarning   Category = "warning"
	CategorySuccess   Category = "success"
	CategoryPlain     Category = "plain"
	CategorySecondary Category = "secondary"
)

// CategoryFor maps a level to its display class. Unknown levels are plain.
func CategoryFor(level event.Level) Category {
	switch level {
	case event.LevelError:
		return CategoryDanger
	case event.LevelWarning:
		return CategoryWarning
	case event.LevelFound:
		return CategorySuccess
	case event.LevelDebug:
		return CategorySecondary
	default:
		return CategoryPlain
	}
}

// Record is one log line.
type Record struct {
	Timestamp int64
	Level     event.Level
	Text      string
	Category  Category
}

// Time converts the record timestamp to local time.
func (r Record) Time() time.Time { return time.Unix(r.Timestamp, 0) }

// Logbook is the append-only, multi-destination log of a session. Records
// are stored oldest-first and read newest-first.
type Logbook struct {
	views [numViews][]Record
}

// NewLogbook creates an empty logbook.
func NewLogbook() *Logbook {
	return &Logbook{}
}

// Append adds one record to the general log, and to the errors or warnings
// view when the level asks for it.
func (l *Logbook) Append(timestamp int64, level event.Level, text string) {
	rec := Record{
		Timestamp: timestamp,
		Level:     level,
		Text:      text,
		Category:  CategoryFor(level),
	}
	l.views[ViewAll] = append(l.views[ViewAll], rec)
	switch level {
	case event.LevelError:
		l.views[ViewErrors] = append(l.views[ViewErrors], rec)
	case event.LevelWarning:
		l.views[ViewWarnings] = append(l.views[ViewWarnings], rec)
	}
}

// Len returns the number of records in view v.
func (l *Logbook) Len(v View) int {
	if v < 0 || v >= numViews {
		return 0
	}
	return len(l.views[v])
}

// Newest returns up to n records of view v, most recent first. n <= 0
// returns the whole view.
func (l *Logbook) Newest(v View, n int) []Record {
	if v < 0 || v >= numViews {
		return nil
	}
	src := l.views[v]
	if n <= 0 || n > len(src) {
		n = len(src)
	}
	out := make([]Record, 0, n)
	for i := len(src) - 1; i >= len(src)-n; i-- {
		out = append(out, src[i])
	}
	return out
}

// Since returns the records of view v appended after the first skip, oldest
// first. Headless mode uses it to print only what is new.
func (l *Logbook) Since(v View, skip int) []Record {
	if v < 0 || v >= numViews || skip >= len(l.views[v]) {
		return nil
	}
	if skip < 0 {
		skip = 0
	}
	out := make([]Record, len(l.views[v])-skip)
	copy(out, l.views[v][skip:])
	return out
}
