package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
)

// StreamSource reads batches pushed over GET /ws?since=N. The connection is
// dialed lazily on the first Fetch and again after any failure, always from
// the caller's current watermark, so nothing is lost across reconnects.
type StreamSource struct {
	baseURL string
	token   string
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStreamSource creates a stream source for the server at baseURL. Both
// http(s) and ws(s) schemes are accepted.
func NewStreamSource(baseURL, token string, timeout time.Duration) *StreamSource {
	d := *websocket.DefaultDialer
	if timeout > 0 {
		d.HandshakeTimeout = timeout
	}
	return &StreamSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		dialer:  &d,
	}
}

// Continuous reports that Fetch waits for new events.
func (s *StreamSource) Continuous() bool { return true }

// Fetch returns the next frame. The first frame after a connect is the
// backlog from watermark; later frames hold newly appended lines only.
func (s *StreamSource) Fetch(ctx context.Context, watermark int64) ([]json.RawMessage, error) {
	conn, err := s.connect(ctx, watermark)
	if err != nil {
		return nil, err
	}

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.drop(conn)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(data, &batch); err != nil {
		s.drop(conn)
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	return batch, nil
}

// Close drops the current connection, if any.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (s *StreamSource) connect(ctx context.Context, watermark int64) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	target, err := streamURL(s.baseURL, watermark)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %d", ErrStatus, target, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	// The server pings; answer and push the read deadline out.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	s.conn = conn
	return conn, nil
}

func (s *StreamSource) drop(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

func streamURL(base string, since int64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"since": {strconv.FormatInt(since, 10)}}.Encode()
	return u.String(), nil
}
