// Package metrics exposes Prometheus collectors for the status server and
// the dashboard client.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest outcomes recorded per event.
const (
	OutcomeDispatched   = "dispatched"
	OutcomeDuplicate    = "duplicate"
	OutcomeMalformed    = "malformed"
	OutcomeUnrecognized = "unrecognized"
)

var (
	ingestEventsTotal          *prometheus.CounterVec
	ingestWatermark            *prometheus.GaugeVec
	ingestSeenHashes           *prometheus.GaugeVec
	fetchTotal                 *prometheus.CounterVec
	fetchDurationSeconds       prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	streamClients              prometheus.Gauge
	statusLinesServed          prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dongler_ingest_events_total",
				Help: "Events seen by the client, labeled by ingest outcome.",
			},
			[]string{"outcome"},
		)

		ingestWatermark = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dongler_ingest_watermark_seconds",
				Help: "Largest event timestamp dispatched, labeled by client session.",
			},
			[]string{"session"},
		)

		ingestSeenHashes = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dongler_ingest_seen_hashes",
				Help: "Number of event hashes held in the seen-set, labeled by client session.",
			},
			[]string{"session"},
		)

		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dongler_fetch_total",
				Help: "Status fetches issued by the poller, labeled by result.",
			},
			[]string{"result"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dongler_fetch_duration_seconds",
				Help:    "Histogram of status fetch latencies.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dongler_http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dongler_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		streamClients = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dongler_stream_clients",
				Help: "WebSocket clients currently attached to the status stream.",
			},
		)

		statusLinesServed = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dongler_status_lines_served_total",
				Help: "Status lines returned by /status and the stream.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing /metrics on addr, for
// processes that have no other HTTP surface.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ObserveIngest counts one event with the given outcome.
func ObserveIngest(outcome string) {
	Init()
	ingestEventsTotal.WithLabelValues(outcome).Inc()
}

// SetSessionState publishes the watermark and seen-set size of one session.
func SetSessionState(session string, watermark int64, seen int) {
	Init()
	ingestWatermark.WithLabelValues(session).Set(float64(watermark))
	ingestSeenHashes.WithLabelValues(session).Set(float64(seen))
}

// ForgetSession drops the gauges of a session that has ended.
func ForgetSession(session string) {
	Init()
	ingestWatermark.DeleteLabelValues(session)
	ingestSeenHashes.DeleteLabelValues(session)
}

// ObserveFetch records one poll of the status source.
func ObserveFetch(err error, duration time.Duration) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncStreamClients increments the stream client gauge.
func IncStreamClients() {
	Init()
	streamClients.Inc()
}

// DecStreamClients decrements the stream client gauge.
func DecStreamClients() {
	Init()
	streamClients.Dec()
}

// ObserveLinesServed counts status lines sent to clients.
func ObserveLinesServed(n int) {
	Init()
	statusLinesServed.Add(float64(n))
}
