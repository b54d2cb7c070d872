package server

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusLines = `{"timestamp":100,"kind":"message","level":"info","text":"start"}
{"timestamp":105,"kind":"progress","current":1,"target":4,"percent":25}
not json
{"timestamp":110,"kind":"current_device","device_name":"KB"}
`

func writeStatus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func getEntries(t *testing.T, h http.Handler, target string) (int, []map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		return rec.Code, nil
	}
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestStatusFilter(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "", nil, nil)

	tests := []struct {
		target string
		want   int
	}{
		{"/status", 3},
		{"/status/0", 3},
		{"/status/105", 2},
		{"/status/106", 1},
		{"/status/999", 0},
	}
	for _, tt := range tests {
		code, entries := getEntries(t, srv.Handler(), tt.target)
		assert.Equal(t, http.StatusOK, code, tt.target)
		assert.Len(t, entries, tt.want, tt.target)
	}
}

func TestStatusHash(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "", nil, nil)
	_, entries := getEntries(t, srv.Handler(), "/status/110")
	require.Len(t, entries, 1)

	sum := md5.Sum([]byte(`{"timestamp":110,"kind":"current_device","device_name":"KB"}` + "\n"))
	assert.Equal(t, hex.EncodeToString(sum[:]), entries[0]["hash"])
}

func TestStatusBadTimestamp(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "", nil, nil)
	for _, target := range []string{"/status/-1", "/status/abc", "/status/1.5"} {
		code, _ := getEntries(t, srv.Handler(), target)
		assert.Equal(t, http.StatusNotFound, code, target)
	}
}

func TestStatusMissingFile(t *testing.T) {
	srv := NewServer(filepath.Join(t.TempDir(), "absent.jsonl"), "", nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/0", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAuthorization(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "s3cret", nil, nil)
	h := srv.Handler()

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"no token", "/status/0", "", http.StatusUnauthorized},
		{"wrong token", "/status/0?token=nope", "", http.StatusUnauthorized},
		{"query token", "/status/0?token=s3cret", "", http.StatusOK},
		{"bearer token", "/status/0", "Bearer s3cret", http.StatusOK},
		{"metrics guarded", "/metrics", "", http.StatusUnauthorized},
		{"healthz open", "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "", nil, nil)
	srv.bootTime = func() (uint64, error) { return 1700000000, nil }

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","boot_time":1700000000,"events":3}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(writeStatus(t, statusLines), "", nil, nil)
	h := srv.Handler()
	getEntries(t, h, "/status/0")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dongler_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(inner).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'",
	}

	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"http://[::1]:8080", true},
		{"http://example.com", true}, // same host as the request below
		{"http://evil.test", false},
		{"::::", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, checkOrigin(req), "origin %q", tt.origin)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestStreamBacklogThenLive(t *testing.T) {
	path := writeStatus(t, statusLines)
	hub := NewHub(path, 10*time.Millisecond, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ts := httptest.NewServer(NewServer(path, "", hub, nil).Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?since=105"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	backlog := readFrame(t, conn)
	require.Len(t, backlog, 2)
	assert.Equal(t, "progress", backlog[0]["kind"])

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"timestamp":120,"kind":"found","device_name":"X","device_type":"keyboard","device_vid":4,"device_pid":522}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	live := readFrame(t, conn)
	require.Len(t, live, 1)
	assert.Equal(t, "found", live[0]["kind"])
	assert.NotEmpty(t, live[0]["hash"])
}

func TestStreamBadSince(t *testing.T) {
	path := writeStatus(t, statusLines)
	srv := NewServer(path, "", NewHub(path, time.Second, 0, nil), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?since=-3", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamDisconnectUnregisters(t *testing.T) {
	path := writeStatus(t, statusLines)
	hub := NewHub(path, time.Second, 0, nil)
	ts := httptest.NewServer(NewServer(path, "", hub, nil).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	assert.Len(t, readFrame(t, conn), 3)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestStreamClientLimit(t *testing.T) {
	path := writeStatus(t, statusLines)
	hub := NewHub(path, time.Second, 1, nil)
	ts := httptest.NewServer(NewServer(path, "", hub, nil).Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Len(t, readFrame(t, first), 3)

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
	assert.Equal(t, 1, hub.ClientCount())

	first.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	third, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer third.Close()
	assert.Len(t, readFrame(t, third), 3)
}
