// File: internal/transport/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-http/api"
)

// closeNotifyTimeout bounds how long HalfClose may block sending close_notify.
const closeNotifyTimeout = 5 * time.Second

// tlsTransport is a TLS server stream over an accepted socket.
type tlsTransport struct {
	base
	conn      *tls.Conn
	handshook atomic.Bool
}

func newTLS(raw net.Conn, cfg *tls.Config, prefix []byte) *tlsTransport {
	t := &tlsTransport{conn: tls.Server(PrefixConn(raw, prefix), cfg)}
	t.raw = raw
	return t
}

func (t *tlsTransport) Mode() api.Mode { return api.ModeTLS }

// Handshake runs the server handshake, consuming any replayed prefix first.
func (t *tlsTransport) Handshake(ctx context.Context) error {
	err := t.conn.HandshakeContext(ctx)
	if err == nil {
		t.handshook.Store(true)
	}
	return t.outcome(err)
}

func (t *tlsTransport) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	return n, t.outcome(err)
}

func (t *tlsTransport) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	return n, t.outcome(err)
}

// HalfClose sends close_notify, then shuts down the TCP sending side.
// Before the handshake has finished there is no record layer to close, so
// both directions of the socket are shut down instead.
func (t *tlsTransport) HalfClose() error {
	if !t.handshook.Load() {
		return t.outcome(shutdownBoth(t.raw))
	}
	_ = t.raw.SetWriteDeadline(time.Now().Add(closeNotifyTimeout))
	if err := t.conn.CloseWrite(); err != nil {
		return t.outcome(err)
	}
	_ = t.raw.SetWriteDeadline(time.Time{})
	return t.outcome(shutdownWrite(t.raw))
}

func (t *tlsTransport) Abort() error {
	return t.abort()
}

func (t *tlsTransport) Conn() net.Conn {
	return t.conn
}

// ConnectionState exposes the negotiated TLS parameters.
func (t *tlsTransport) ConnectionState() tls.ConnectionState {
	return t.conn.ConnectionState()
}
