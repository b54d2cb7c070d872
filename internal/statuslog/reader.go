// Package statuslog reads and writes the MacDongler status file: one JSON
// object per line, appended by the scanner and served to dashboards.
package statuslog

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ParseLine prepares one complete status line (trailing newline included)
// for the wire. It adds "hash", the hex MD5 of the raw line bytes, so that
// clients can tell repeated lines apart from new ones. ok is false for
// lines that are not a JSON object with a numeric timestamp.
func ParseLine(line []byte) (entry json.RawMessage, timestamp float64, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(line), &fields); err != nil || fields == nil {
		return nil, 0, false
	}
	rawTS, found := fields["timestamp"]
	if !found {
		return nil, 0, false
	}
	if err := json.Unmarshal(rawTS, &timestamp); err != nil {
		return nil, 0, false
	}

	sum := md5.Sum(line)
	hash, _ := json.Marshal(hex.EncodeToString(sum[:]))
	fields["hash"] = hash

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, 0, false
	}
	return out, timestamp, true
}

// ReadSince returns every entry of the status file whose timestamp is at or
// after since, in file order. Entries at exactly since are included on
// purpose: several lines can share a second and the client deduplicates.
// A missing file is an empty log, not an error.
//
// A last line without its newline is served when it already parses, so an
// event is not lost if the scanner dies before finishing the line. It is
// hashed as if the newline were there, which keeps its hash stable once
// the line is completed.
func ReadSince(path string, since int64) ([]json.RawMessage, error) {
	entries, _, err := readFrom(path, 0, since, true)
	return entries, err
}

// ReadFrom parses complete lines starting at byte offset and returns the
// entries with timestamp >= since plus the offset just past the last
// complete line. An incomplete trailing line is left for the next call.
func ReadFrom(path string, offset int64, since int64) ([]json.RawMessage, int64, error) {
	return readFrom(path, offset, since, false)
}

func readFrom(path string, offset, since int64, withFragment bool) ([]json.RawMessage, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open status file: %w", err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, offset, fmt.Errorf("seek status file: %w", err)
		}
	}

	var entries []json.RawMessage
	reader := bufio.NewReader(f)
	parsedOffset := offset

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return entries, parsedOffset, fmt.Errorf("read status file: %w", err)
		}

		// Only complete lines advance the offset. The scanner may be
		// halfway through writing the last one.
		if len(line) == 0 || line[len(line)-1] != '\n' {
			if withFragment && len(line) > 0 {
				entry, ts, ok := ParseLine(append(line, '\n'))
				if ok && ts >= float64(since) {
					entries = append(entries, entry)
				}
			}
			break
		}
		parsedOffset += int64(len(line))

		entry, ts, ok := ParseLine(line)
		if ok && ts >= float64(since) {
			entries = append(entries, entry)
		}
	}

	return entries, parsedOffset, nil
}

// Tail follows a status file across calls, returning only lines appended
// since the previous call.
type Tail struct {
	path   string
	offset int64
}

// NewTail starts following path from byte offset 0.
func NewTail(path string) *Tail {
	return &Tail{path: path}
}

// Next returns the entries appended since the last call. If the file shrank
// (the scanner started a new run) reading restarts from the top.
func (t *Tail) Next() ([]json.RawMessage, error) {
	if info, err := os.Stat(t.path); err == nil && info.Size() < t.offset {
		t.offset = 0
	}
	entries, offset, err := ReadFrom(t.path, t.offset, 0)
	t.offset = offset
	return entries, err
}

// Offset is the byte position the next call will read from.
func (t *Tail) Offset() int64 { return t.offset }
