package statuslog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/event"
)

// Writer appends status events for the scanner. Every call writes exactly
// one line with the current Unix time, so concurrent readers only ever see
// whole events or an incomplete last line.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	log *zap.Logger
	now func() time.Time
}

// Create opens path for appending, creating it if needed.
func Create(path string, log *zap.Logger) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open status file %s: %w", path, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{f: f, log: log, now: time.Now}, nil
}

// Progress records how many profiles of target were tried.
func (w *Writer) Progress(current, target int) error {
	percent := 0
	if target > 0 {
		percent = current * 100 / target
	}
	return w.append(event.KindProgress, map[string]any{
		"current": current,
		"target":  target,
		"percent": percent,
	})
}

// CurrentDevice records the profile the scanner is emulating now.
func (w *Writer) CurrentDevice(name string) error {
	return w.append(event.KindCurrentDevice, map[string]any{"device_name": name})
}

// Found records a profile the target accepted.
func (w *Writer) Found(name, deviceType string, vid, pid uint16) error {
	w.log.Info("device found",
		zap.String("device", name),
		zap.String("type", deviceType),
		zap.String("vid_pid", event.FormatVIDPID(vid, pid)),
	)
	return w.append(event.KindFound, map[string]any{
		"device_name": name,
		"device_type": deviceType,
		"device_vid":  vid,
		"device_pid":  pid,
	})
}

func (w *Writer) Error(text string) error {
	w.log.Error(text)
	return w.message(event.LevelError, text)
}

func (w *Writer) Warn(text string) error {
	w.log.Warn(text)
	return w.message(event.LevelWarning, text)
}

func (w *Writer) Info(text string) error {
	w.log.Info(text)
	return w.message(event.LevelInfo, text)
}

func (w *Writer) Debug(text string) error {
	w.log.Debug(text)
	return w.message(event.LevelDebug, text)
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func (w *Writer) message(level event.Level, text string) error {
	return w.append(event.KindMessage, map[string]any{
		"level": level,
		"text":  text,
	})
}

func (w *Writer) append(kind event.Kind, fields map[string]any) error {
	fields["kind"] = kind

	w.mu.Lock()
	defer w.mu.Unlock()

	fields["timestamp"] = w.now().Unix()
	line, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write %s event: %w", kind, err)
	}
	return nil
}
