package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by Decode for events that must be dropped
// without touching any client state.
var ErrMalformed = errors.New("malformed event")

// wire is the JSON shape of one entry served by /status. Required fields are
// pointers so that absence can be told apart from a zero value.
type wire struct {
	Timestamp *float64 `json:"timestamp"`
	Kind      *string  `json:"kind"`
	Hash      *string  `json:"hash"`

	Level string `json:"level"`
	Text  string `json:"text"`

	Current int `json:"current"`
	Target  int `json:"target"`
	Percent int `json:"percent"`

	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
	DeviceVID  int    `json:"device_vid"`
	DevicePID  int    `json:"device_pid"`
}

// Decode validates one raw entry and converts it into its variant.
// Any returned error wraps ErrMalformed.
func Decode(raw json.RawMessage) (Event, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case w.Timestamp == nil:
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	case w.Kind == nil || *w.Kind == "":
		return nil, fmt.Errorf("%w: missing kind", ErrMalformed)
	case w.Hash == nil || *w.Hash == "":
		return nil, fmt.Errorf("%w: missing hash", ErrMalformed)
	}
	if ts := *w.Timestamp; math.IsNaN(ts) || ts >= math.MaxInt64 || ts < math.MinInt64 {
		return nil, fmt.Errorf("%w: timestamp out of range", ErrMalformed)
	}

	meta := Meta{
		Timestamp: int64(math.Trunc(*w.Timestamp)),
		Kind:      Kind(*w.Kind),
		Hash:      *w.Hash,
	}

	switch meta.Kind {
	case KindMessage:
		return Message{Meta: meta, Level: Level(w.Level), Text: w.Text}, nil
	case KindProgress:
		return Progress{Meta: meta, Current: w.Current, Target: w.Target, Percent: w.Percent}, nil
	case KindCurrentDevice:
		return CurrentDevice{Meta: meta, DeviceName: w.DeviceName}, nil
	case KindFound:
		vid, err := deviceID("device_vid", w.DeviceVID)
		if err != nil {
			return nil, err
		}
		pid, err := deviceID("device_pid", w.DevicePID)
		if err != nil {
			return nil, err
		}
		return Found{
			Meta:       meta,
			DeviceName: w.DeviceName,
			DeviceType: w.DeviceType,
			VID:        vid,
			PID:        pid,
		}, nil
	default:
		return Unrecognized{Meta: meta}, nil
	}
}

func deviceID(field string, v int) (uint16, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrMalformed, field, v)
	}
	return uint16(v), nil
}
