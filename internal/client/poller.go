package client

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/metrics"
)

// Poller drives a session from a Source on a fixed cadence. A cycle is one
// fetch followed by processing of the whole batch; the next cycle is only
// scheduled after that, so cycles never overlap.
type Poller struct {
	src      Source
	session  *ingest.Session
	interval time.Duration
	log      *zap.Logger

	// OnReport, when set, is called after every successful cycle.
	OnReport func(ingest.Report)
}

// NewPoller creates a poller. A nil logger discards diagnostics.
func NewPoller(src Source, session *ingest.Session, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{src: src, session: session, interval: interval, log: log}
}

// Tick runs one cycle. A fetch error is returned for the caller's benefit
// but is never fatal: the session, watermark included, is left as it was.
func (p *Poller) Tick(ctx context.Context) (ingest.Report, error) {
	watermark := p.session.Watermark()
	start := time.Now()
	batch, err := p.src.Fetch(ctx, watermark)
	metrics.ObserveFetch(err, time.Since(start))
	if err != nil {
		p.log.Debug("fetch failed", zap.Int64("watermark", watermark), zap.Error(err))
		return ingest.Report{}, err
	}

	rep := p.session.Process(batch)
	if p.OnReport != nil {
		p.OnReport(rep)
	}
	return rep, nil
}

// Run polls until ctx is cancelled. It polls once immediately.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			_, err := p.Tick(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			timer.Reset(NextDelay(p.src, p.interval, err))
		}
	}
}

// NextDelay is how long to wait before the next fetch. Continuous sources
// are read again at once unless the last fetch failed.
func NextDelay(src Source, interval time.Duration, err error) time.Duration {
	if c, ok := src.(continuous); ok && c.Continuous() && err == nil {
		return 0
	}
	return interval
}

// FetchCmd returns a Bubble Tea command performing one fetch from
// watermark. The batch is processed by the model in Update.
func FetchCmd(ctx context.Context, src Source, watermark int64) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		batch, err := src.Fetch(ctx, watermark)
		elapsed := time.Since(start)
		metrics.ObserveFetch(err, elapsed)
		return BatchMsg{Batch: batch, Err: err, Elapsed: elapsed}
	}
}

// ScheduleFetch returns a command that delivers TickMsg after d.
func ScheduleFetch(d time.Duration) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return TickMsg{} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return TickMsg{} })
}

// HealthCmd probes /healthz once.
func HealthCmd(ctx context.Context, src *HTTPSource) tea.Cmd {
	return func() tea.Msg {
		h, err := src.Health(ctx)
		return HealthMsg{Health: h, Err: err}
	}
}
