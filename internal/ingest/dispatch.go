package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/event"
)

// Changes flags which parts of the aggregate state a dispatch touched, so
// the renderer can redraw only what moved.
type Changes uint8

const (
	ChangedLog Changes = 1 << iota
	ChangedProgress
	ChangedCurrentDevice
	ChangedFound
)

// Has reports whether every flag in c2 is set in c.
func (c Changes) Has(c2 Changes) bool { return c&c2 == c2 }

// Handler receives routed events. State is the production implementation.
type Handler interface {
	// OnMessage records one log line.
	OnMessage(timestamp int64, level event.Level, text string)
	// OnProgress replaces the progress snapshot.
	OnProgress(current, target, percent int)
	// OnCurrentDevice replaces the name of the device being tried.
	OnCurrentDevice(name string)
	// OnFound counts a working device and lists it.
	OnFound(found event.Found)
}

// Dispatcher routes admitted events to a Handler by kind.
type Dispatcher struct {
	handler Handler
	log     *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil logger disables diagnostics.
func NewDispatcher(h Handler, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{handler: h, log: log}
}

// Dispatch hands ev to the handler and reports what changed.
func (d *Dispatcher) Dispatch(ev event.Event) Changes {
	r := route{d: d}
	ev.Accept(&r)
	return r.changes
}

// FoundMessage is the log line synthesized for every found event.
func FoundMessage(deviceName string) string {
	return fmt.Sprintf("Device %s was found to be working!", deviceName)
}

// route adapts one dispatch to event.Visitor.
type route struct {
	d       *Dispatcher
	changes Changes
}

func (r *route) VisitMessage(e event.Message) {
	r.d.handler.OnMessage(e.Timestamp, e.Level, e.Text)
	r.changes |= ChangedLog
}

func (r *route) VisitProgress(e event.Progress) {
	r.d.handler.OnProgress(e.Current, e.Target, e.Percent)
	r.changes |= ChangedProgress
}

func (r *route) VisitCurrentDevice(e event.CurrentDevice) {
	r.d.handler.OnCurrentDevice(e.DeviceName)
	r.changes |= ChangedCurrentDevice
}

func (r *route) VisitFound(e event.Found) {
	r.d.handler.OnFound(e)
	r.d.handler.OnMessage(e.Timestamp, event.LevelFound, FoundMessage(e.DeviceName))
	r.changes |= ChangedFound | ChangedLog
}

func (r *route) VisitUnrecognized(e event.Unrecognized) {
	r.d.log.Info("unsupported event kind, update the dashboard",
		zap.String("kind", string(e.Kind)),
		zap.String("hash", e.Hash),
		zap.Int64("timestamp", e.Timestamp),
	)
}
