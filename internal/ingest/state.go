package ingest

import "github.com/macdongler/dashboard/internal/event"

// Progress is the last progress snapshot received.
type Progress struct {
	Current int
	Target  int
	Percent int
}

// DeviceRow is one line of the found-devices listing.
type DeviceRow struct {
	Name   string
	Type   string
	VIDPID string
}

// State is the aggregate view of a session: counters, last-known values
// and the append-only device and log listings. It is mutated only by the
// dispatcher and read by the renderer.
type State struct {
	foundCount    int
	currentDevice string
	progress      Progress
	devices       []DeviceRow
	log           *Logbook
}

// NewState creates an empty aggregate state.
func NewState() *State {
	return &State{log: NewLogbook()}
}

var _ Handler = (*State)(nil)

// OnMessage appends to the log views.
func (s *State) OnMessage(timestamp int64, level event.Level, text string) {
	s.log.Append(timestamp, level, text)
}

// OnProgress overwrites the progress snapshot.
func (s *State) OnProgress(current, target, percent int) {
	s.progress = Progress{Current: current, Target: target, Percent: percent}
}

// OnCurrentDevice overwrites the current device name.
func (s *State) OnCurrentDevice(name string) {
	s.currentDevice = name
}

// OnFound bumps the found counter and lists the device.
func (s *State) OnFound(f event.Found) {
	s.foundCount++
	s.devices = append(s.devices, DeviceRow{
		Name:   f.DeviceName,
		Type:   f.DeviceType,
		VIDPID: f.VIDPID(),
	})
}

func (s *State) FoundCount() int { return s.foundCount }
func (s *State) CurrentDevice() string { return s.currentDevice }
func (s *State) Progress() Progress { return s.progress }
func (s *State) Log() *Logbook { return s.log }

// Devices returns a copy of the found-device rows in discovery order.
func (s *State) Devices() []DeviceRow {
	out := make([]DeviceRow, len(s.devices))
	copy(out, s.devices)
	return out
}
