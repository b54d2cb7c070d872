// Package event models the status events a MacDongler scan appends to its
// status file and serves through /status. Events are a closed set of
// variants behind the Event interface; kinds this client does not know
// decode to Unrecognized so newer producers keep working.
package event

import "time"

// Kind identifies the variant of a status event.
type Kind string

const (
	KindMessage       Kind = "message"
	KindProgress      Kind = "progress"
	KindCurrentDevice Kind = "current_device"
	KindFound         Kind = "found"
)

// Level is the severity of a message event.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelFound   Level = "found"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
)

// Meta holds the fields every event carries.
type Meta struct {
	Timestamp int64
	Kind      Kind
	Hash      string
}

// Header returns the shared fields of the event.
func (m Meta) Header() Meta { return m }

// Time converts the event timestamp to a time.Time.
func (m Meta) Time() time.Time { return time.Unix(m.Timestamp, 0) }

// Visitor receives exactly one call per event passed to Event.Accept.
// Adding a variant adds a method here, so every implementation must be
// updated before the module compiles again.
type Visitor interface {
	VisitMessage(Message)
	VisitProgress(Progress)
	VisitCurrentDevice(CurrentDevice)
	VisitFound(Found)
	VisitUnrecognized(Unrecognized)
}

// Event is one decoded status event.
type Event interface {
	Header() Meta
	Accept(Visitor)
}

// Message is a free-text log line from the scanner.
type Message struct {
	Meta
	Level Level
	Text  string
}

// Progress reports how far the scan has come.
type Progress struct {
	Meta
	Current int
	Target  int
	Percent int
}

// CurrentDevice names the device profile the scanner is trying now.
type CurrentDevice struct {
	Meta
	DeviceName string
}

// Found reports a device profile that was accepted by the target.
type Found struct {
	Meta
	DeviceName string
	DeviceType string
	VID        uint16
	PID        uint16
}

// VIDPID renders the vendor and product ids as "vvvv:pppp".
func (f Found) VIDPID() string { return FormatVIDPID(f.VID, f.PID) }

// Unrecognized is a well-formed event of a kind this client does not handle.
type Unrecognized struct {
	Meta
}

func (e Message) Accept(v Visitor) { v.VisitMessage(e) }
func (e Progress) Accept(v Visitor) { v.VisitProgress(e) }
func (e CurrentDevice) Accept(v Visitor) { v.VisitCurrentDevice(e) }
func (e Found) Accept(v Visitor) { v.VisitFound(e) }
func (e Unrecognized) Accept(v Visitor) { v.VisitUnrecognized(e) }
