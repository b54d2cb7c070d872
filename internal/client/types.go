// Package client fetches status events from a MacDongler status server.
// Types mirror the server's wire format without importing server packages.
package client

import (
	"context"
	"encoding/json"
	"time"
)

// Source returns the events logged at or after watermark. Entries are left
// raw; validation belongs to the ingest session.
type Source interface {
	Fetch(ctx context.Context, watermark int64) ([]json.RawMessage, error)
}

// continuous is implemented by sources whose Fetch blocks until new events
// exist, so the caller can fetch again right away.
type continuous interface {
	Continuous() bool
}

// Health mirrors the /healthz response.
type Health struct {
	Status   string `json:"status"`
	BootTime int64  `json:"boot_time"`
	Events   int    `json:"events"`
}

// Booted returns the producer's boot time.
func (h Health) Booted() time.Time { return time.Unix(h.BootTime, 0) }

// --- Bubble Tea messages ---

// BatchMsg carries the result of one fetch. Err is a soft failure: the
// session is left untouched and the next fetch is scheduled as usual.
type BatchMsg struct {
	Batch   []json.RawMessage
	Err     error
	Elapsed time.Duration
}

// TickMsg asks the model to issue the next fetch.
type TickMsg struct{}

// HealthMsg delivers a /healthz probe result.
type HealthMsg struct {
	Health Health
	Err    error
}
