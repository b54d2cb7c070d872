// Package ingest is the client side of the status protocol: it turns
// fetched batches of raw events into exactly-once dispatches against an
// aggregate state, tracking which hashes were seen and how far the
// watermark has advanced.
//
// A Session is owned by a single goroutine. Nothing here locks.
package ingest

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/event"
	"github.com/macdongler/dashboard/internal/metrics"
)

// Options configure a Session.
type Options struct {
	// SeenRetention bounds the seen-set to hashes no older than this many
	// seconds behind the watermark. Zero keeps every hash for the session.
	SeenRetention int64
	Logger        *zap.Logger
}

// Report summarizes one processed batch.
type Report struct {
	Received     int
	Dispatched   int
	Duplicates   int
	Malformed    int
	Unrecognized int
	Evicted      int
	Changes      Changes
}

// Session holds everything one client run knows about the event log.
type Session struct {
	id         uuid.UUID
	tracker    *Tracker
	state      *State
	dispatcher *Dispatcher
	log        *zap.Logger
}

// NewSession starts an empty session with a zero watermark.
func NewSession(opts Options) *Session {
	id := uuid.New()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", id.String()))

	state := NewState()
	return &Session{
		id:         id,
		tracker:    NewTracker(opts.SeenRetention),
		state:      state,
		dispatcher: NewDispatcher(state, log),
		log:        log,
	}
}

// Process validates, deduplicates and dispatches a batch in the order given.
// A bad event never stops its siblings from being processed.
func (s *Session) Process(batch []json.RawMessage) Report {
	rep := Report{Received: len(batch)}
	for _, raw := range batch {
		ev, err := event.Decode(raw)
		if err != nil {
			rep.Malformed++
			metrics.ObserveIngest(metrics.OutcomeMalformed)
			s.log.Warn("dropping malformed status event",
				zap.Error(err),
				zap.ByteString("raw", truncate(raw, 256)),
			)
			continue
		}

		if !s.tracker.Admit(ev.Header()) {
			rep.Duplicates++
			metrics.ObserveIngest(metrics.OutcomeDuplicate)
			continue
		}

		if _, ok := ev.(event.Unrecognized); ok {
			rep.Unrecognized++
			metrics.ObserveIngest(metrics.OutcomeUnrecognized)
		} else {
			metrics.ObserveIngest(metrics.OutcomeDispatched)
		}
		rep.Changes |= s.dispatcher.Dispatch(ev)
		rep.Dispatched++
	}

	rep.Evicted = s.tracker.Evict()
	metrics.SetSessionState(s.id.String(), s.tracker.Watermark(), s.tracker.Len())

	if rep.Dispatched > 0 || rep.Malformed > 0 {
		s.log.Debug("processed status batch",
			zap.Int("received", rep.Received),
			zap.Int("dispatched", rep.Dispatched),
			zap.Int("duplicates", rep.Duplicates),
			zap.Int("malformed", rep.Malformed),
			zap.Int64("watermark", s.tracker.Watermark()),
		)
	}
	return rep
}

// Close removes the session's gauges. The session must not be used after.
func (s *Session) Close() {
	metrics.ForgetSession(s.id.String())
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Watermark is the lower bound to pass to the next fetch.
func (s *Session) Watermark() int64 { return s.tracker.Watermark() }

// Seen reports whether an event with this hash was dispatched.
func (s *Session) Seen(hash string) bool { return s.tracker.Seen(hash) }

// SeenCount is the current size of the seen-set.
func (s *Session) SeenCount() int { return s.tracker.Len() }

// State exposes the aggregate state for rendering.
func (s *Session) State() *State { return s.state }

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
