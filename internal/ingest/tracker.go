package ingest

import "github.com/macdongler/dashboard/internal/event"

// Tracker owns the seen-set and the watermark of a session.
//
// The seen-set maps each dispatched hash to its event timestamp so that
// optional eviction can drop hashes the watermark has made unreachable.
type Tracker struct {
	seen      map[string]int64
	watermark int64
	retention int64 // seconds behind the watermark to keep; 0 keeps everything
}

// NewTracker creates an empty tracker. retention <= 0 disables eviction.
func NewTracker(retention int64) *Tracker {
	return &Tracker{
		seen:      make(map[string]int64),
		retention: retention,
	}
}

// Admit marks the event as seen and raises the watermark. It returns false,
// leaving all state untouched, when the hash was already admitted.
func (t *Tracker) Admit(m event.Meta) bool {
	if _, ok := t.seen[m.Hash]; ok {
		return false
	}
	t.seen[m.Hash] = m.Timestamp
	if m.Timestamp > t.watermark {
		t.watermark = m.Timestamp
	}
	return true
}

// Watermark is the largest timestamp admitted so far.
func (t *Tracker) Watermark() int64 { return t.watermark }

// Seen reports whether hash has been admitted.
func (t *Tracker) Seen(hash string) bool {
	_, ok := t.seen[hash]
	return ok
}

// Len returns the size of the seen-set.
func (t *Tracker) Len() int { return len(t.seen) }

// Evict drops hashes older than watermark-retention and returns how many
// were removed. The source only serves events at or after the watermark,
// so an evicted hash cannot come back through a fetch.
func (t *Tracker) Evict() int {
	if t.retention <= 0 {
		return 0
	}
	cutoff := t.watermark - t.retention
	n := 0
	for hash, ts := range t.seen {
		if ts < cutoff {
			delete(t.seen, hash)
			n++
		}
	}
	return n
}
