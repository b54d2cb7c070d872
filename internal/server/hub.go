package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/metrics"
	"github.com/macdongler/dashboard/internal/statuslog"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// ErrTooManyClients is returned by AddClient when the hub is full.
var ErrTooManyClients = errors.New("too many stream clients")

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub tails the status file and pushes every newly completed line to the
// connected stream clients, one JSON array frame per poll that found lines.
type Hub struct {
	path     string
	interval time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader

	maxClients int // 0 = unlimited

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(path string, interval time.Duration, maxClients int, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		path:       path,
		interval:   interval,
		log:        log,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		maxClients: maxClients,
		clients:    make(map[*client]bool),
	}
}

// Run tails the file until ctx is cancelled. Lines already in the file when
// Run starts reach clients through their backlog frame instead.
func (h *Hub) Run(ctx context.Context) {
	tail := statuslog.NewTail(h.path)
	if _, err := tail.Next(); err != nil {
		h.log.Warn("initial status read failed", zap.Error(err))
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			entries, err := tail.Next()
			if err != nil {
				h.log.Warn("status tail failed", zap.Error(err))
			}
			if len(entries) > 0 {
				h.broadcast(entries)
			}
		}
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, since int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	c, err := h.AddClient(conn, since)
	if errors.Is(err, ErrTooManyClients) {
		h.log.Warn("stream client rejected", zap.String("remote", r.RemoteAddr), zap.Int("max", h.maxClients))
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		conn.Close()
		return
	}
	if err != nil {
		h.log.Error("stream backlog failed", zap.Error(err))
		conn.Close()
		return
	}
	h.log.Info("stream client connected",
		zap.String("client", c.id.String()),
		zap.String("remote", r.RemoteAddr),
		zap.Int64("since", since),
	)

	go h.readPump(c)
}

// AddClient queues the backlog from since as the client's first frame and
// registers it for live frames. The backlog is read under the lock so that
// no broadcast can fall between the two.
func (h *Hub) AddClient(conn *websocket.Conn, since int64) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxClients > 0 && len(h.clients) >= h.maxClients {
		return nil, ErrTooManyClients
	}

	backlog, err := statuslog.ReadSince(h.path, since)
	if err != nil {
		return nil, err
	}
	if backlog == nil {
		backlog = []json.RawMessage{}
	}
	data, err := json.Marshal(backlog)
	if err != nil {
		return nil, err
	}

	c := newClient(conn)
	c.send <- data
	h.clients[c] = true
	metrics.IncStreamClients()
	metrics.ObserveLinesServed(len(backlog))
	return c, nil
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
		metrics.DecStreamClients()
	}
	h.mu.Unlock()
}

// readPump discards client frames; it exists to process pongs and notice
// the connection closing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.RemoveClient(c)
		h.log.Info("stream client disconnected", zap.String("client", c.id.String()))
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) broadcast(entries []json.RawMessage) {
	data, err := json.Marshal(entries)
	if err != nil {
		h.log.Error("broadcast marshal failed", zap.Error(err))
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
			metrics.ObserveLinesServed(len(entries))
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Slow clients are dropped. They resume from their own watermark when
	// they reconnect.
	for _, c := range slow {
		h.log.Warn("stream client too slow, disconnecting", zap.String("client", c.id.String()))
		h.RemoveClient(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
		metrics.DecStreamClients()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
