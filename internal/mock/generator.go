// Package mock simulates a MacDongler scan so the server and dashboard can
// be exercised without gadget hardware.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/event"
)

// Profile is one USB device profile the scanner can emulate.
type Profile struct {
	Name string
	Type string
	VID  uint16
	PID  uint16
}

var catalog = []Profile{
	{Name: "Apple Magic Keyboard", Type: "keyboard", VID: 0x05ac, PID: 0x0267},
	{Name: "Logitech K120", Type: "keyboard", VID: 0x046d, PID: 0xc31c},
	{Name: "Dell KB216", Type: "keyboard", VID: 0x413c, PID: 0x2113},
	{Name: "Microsoft Basic Optical Mouse", Type: "mouse", VID: 0x045e, PID: 0x0084},
	{Name: "Realtek RTL8153 Ethernet", Type: "ethernet", VID: 0x0bda, PID: 0x8153},
	{Name: "ASIX AX88179 Ethernet", Type: "ethernet", VID: 0x0b95, PID: 0x1790},
	{Name: "FTDI FT232R Serial", Type: "serial", VID: 0x0403, PID: 0x6001},
	{Name: "Prolific PL2303 Serial", Type: "serial", VID: 0x067b, PID: 0x2303},
	{Name: "SanDisk Cruzer Blade", Type: "storage", VID: 0x0781, PID: 0x5567},
	{Name: "Yubico YubiKey OTP", Type: "keyboard", VID: 0x1050, PID: 0x0010},
	{Name: "Linux Foundation Root Hub", Type: "hub", VID: 0x1d6b, PID: 0x0002},
	{Name: "Generic CDC ACM", Type: "serial", VID: 0x0004, PID: 0x020a},
}

// Sink receives the simulated events. statuslog.Writer implements it.
type Sink interface {
	Progress(current, target int) error
	CurrentDevice(name string) error
	Found(name, deviceType string, vid, pid uint16) error
	Error(text string) error
	Warn(text string) error
	Info(text string) error
	Debug(text string) error
}

type Generator struct {
	sink     Sink
	interval time.Duration
	profiles []Profile
	rng      *rand.Rand
	log      *zap.Logger

	// FoundRate and ErrorRate are the chances that a profile is accepted
	// by the target or fails to enumerate.
	FoundRate float64
	ErrorRate float64
}

// NewGenerator builds a scan over devices profiles, cycling through the
// built-in catalog. A fixed seed gives a reproducible scan.
func NewGenerator(sink Sink, interval time.Duration, devices int, seed int64, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	profiles := make([]Profile, devices)
	for i := range profiles {
		p := catalog[i%len(catalog)]
		if round := i / len(catalog); round > 0 {
			p.Name = fmt.Sprintf("%s (rev %d)", p.Name, round+1)
			p.PID += uint16(round)
		}
		profiles[i] = p
	}
	return &Generator{
		sink:      sink,
		interval:  interval,
		profiles:  profiles,
		rng:       rand.New(rand.NewSource(seed)),
		log:       log,
		FoundRate: 0.2,
		ErrorRate: 0.05,
	}
}

// Start runs the scan in the background.
func (g *Generator) Start(ctx context.Context) {
	go func() {
		if err := g.Run(ctx); err != nil && ctx.Err() == nil {
			g.log.Error("mock scan stopped", zap.Error(err))
		}
	}()
}

// Run performs the whole scan, one profile per interval, and returns when
// it is finished or ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	if err := g.preamble(); err != nil {
		return err
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	found := 0
	for i, p := range g.profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ok, err := g.try(p)
		if err != nil {
			return err
		}
		if ok {
			found++
		}
		if err := g.sink.Progress(i+1, len(g.profiles)); err != nil {
			return err
		}
	}

	g.log.Info("mock scan finished", zap.Int("profiles", len(g.profiles)), zap.Int("found", found))
	return g.sink.Info(fmt.Sprintf("Scan complete. %d of %d device profiles worked.", found, len(g.profiles)))
}

func (g *Generator) preamble() error {
	steps := []func() error{
		func() error { return g.sink.Info("Auto-selected UDC controller dummy_udc.0") },
		func() error {
			return g.sink.Warn("This UDC controller appears to be a software dummy. This means you are targeting _this_ system.")
		},
		func() error { return g.sink.Info(fmt.Sprintf("Loaded %d device profiles", len(g.profiles))) },
		func() error { return g.sink.Progress(0, len(g.profiles)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) try(p Profile) (bool, error) {
	if err := g.sink.CurrentDevice(p.Name); err != nil {
		return false, err
	}
	if err := g.sink.Debug(fmt.Sprintf("Emulating %s %s", p.Name, event.FormatVIDPID(p.VID, p.PID))); err != nil {
		return false, err
	}

	roll := g.rng.Float64()
	switch {
	case roll < g.ErrorRate:
		return false, g.sink.Error(fmt.Sprintf("Failed to bind %s to the UDC controller", p.Name))
	case roll < g.ErrorRate+g.FoundRate:
		return true, g.sink.Found(p.Name, p.Type, p.VID, p.PID)
	default:
		return false, nil
	}
}
