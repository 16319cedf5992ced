// File: internal/websocket/echo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package websocket

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/transport"
)

// Defaults for EchoHandler.
const (
	DefaultPingInterval = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultReadLimit    = 1 << 20
)

// Metric keys reported by EchoHandler.
const (
	MetricUpgrades      = "websocket.upgrades"
	MetricUpgradeErrors = "websocket.upgrade_errors"
	MetricMessages      = "websocket.messages"
)

// Option configures an EchoHandler.
type Option func(*EchoHandler)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(h *EchoHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the counter sink.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(h *EchoHandler) { h.metrics = m }
}

// WithPingInterval sets the keep-alive ping period.
func WithPingInterval(d time.Duration) Option {
	return func(h *EchoHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithCheckOrigin replaces the same-host origin check.
func WithCheckOrigin(fn func(origin, host string) bool) Option {
	return func(h *EchoHandler) { h.checkOrigin = fn }
}

// EchoHandler implements api.Handoff by echoing WebSocket messages.
type EchoHandler struct {
	upgrader     websocket.Upgrader
	logger       *log.Logger
	metrics      *control.MetricsRegistry
	pingInterval time.Duration
	writeTimeout time.Duration
	checkOrigin  func(origin, host string) bool

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	active atomic.Int64
	wg     sync.WaitGroup
}

var _ api.Handoff = (*EchoHandler)(nil)

// NewEchoHandler creates a handler ready to accept handoffs.
func NewEchoHandler(opts ...Option) *EchoHandler {
	h := &EchoHandler{
		logger:       log.Default(),
		pingInterval: DefaultPingInterval,
		writeTimeout: DefaultWriteTimeout,
		conns:        make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: h.writeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	if h.checkOrigin != nil {
		check := h.checkOrigin
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return check(r.Header.Get("Origin"), r.Host)
		}
	}
	return h
}

// Active returns the number of open WebSocket connections.
func (h *EchoHandler) Active() int64 { return h.active.Load() }

// Handoff takes ownership of tr. It returns once the connection ends.
func (h *EchoHandler) Handoff(tr api.Transport, buffered []byte, req *api.Request) {
	defer tr.Abort()

	r, err := toHTTPRequest(req, tr.RemoteAddr())
	if err != nil {
		h.metrics.Add(MetricUpgradeErrors, 1)
		h.logger.Printf("websocket %s: %v", tr.RemoteAddr(), err)
		return
	}
	w := newHijackWriter(transport.PrefixConn(tr.Conn(), buffered))
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.metrics.Add(MetricUpgradeErrors, 1)
		h.logger.Printf("websocket %s: upgrade: %v", tr.RemoteAddr(), err)
		tr.HalfClose()
		return
	}
	if !h.track(ws) {
		ws.Close()
		return
	}
	defer h.untrack(ws)
	h.metrics.Add(MetricUpgrades, 1)
	h.serve(ws)
}

func (h *EchoHandler) track(ws *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[ws] = struct{}{}
	h.active.Add(1)
	h.wg.Add(1)
	return true
}

func (h *EchoHandler) untrack(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, ws)
	h.mu.Unlock()
	h.active.Add(-1)
	h.wg.Done()
}

func (h *EchoHandler) serve(ws *websocket.Conn) {
	defer ws.Close()
	stop := make(chan struct{})
	defer close(stop)

	pongWait := h.pingInterval + h.writeTimeout
	ws.SetReadLimit(DefaultReadLimit)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.keepAlive(ws, stop)

	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("websocket %s: read: %v", ws.RemoteAddr(), err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := ws.WriteMessage(mt, msg); err != nil {
			h.logger.Printf("websocket %s: write: %v", ws.RemoteAddr(), err)
			return
		}
		h.metrics.Add(MetricMessages, 1)
	}
}

// keepAlive sends periodic pings until stop closes.
func (h *EchoHandler) keepAlive(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		}
	}
}

// Close sends a going-away close frame to every open connection and
// waits for their loops to finish.
func (h *EchoHandler) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for ws := range h.conns {
		conns = append(conns, ws)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	for _, ws := range conns {
		ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		ws.Close()
	}
	h.wg.Wait()
	return nil
}
