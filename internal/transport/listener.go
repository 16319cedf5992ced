// File: internal/transport/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accepting side: a TCP listener wrapper and transport-mode detection for
// connections whose mode is not fixed in advance.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/momentics/hioload-http/api"
)

// ErrListenerClosed is returned by Accept when the listener has been closed.
var ErrListenerClosed = errors.New("listener closed")

// tlsRecordHandshake is the first byte of every TLS ClientHello record.
const tlsRecordHandshake = 0x16

// Listener accepts TCP connections with Nagle disabled.
type Listener struct {
	ln net.Listener
}

// Listen binds addr.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// NewListener wraps an already bound listener.
func NewListener(ln net.Listener) *Listener {
	return &Listener{ln: ln}
}

// Accept returns the next connection. After Close it returns ErrListenerClosed.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, fmt.Errorf("accept connection: %w", err)
	}
	_ = SetNoDelay(conn)
	return conn, nil
}

// Close stops Accept.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Addr returns the listener address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// DetectMode peeks at the first byte a client sends: a TLS handshake
// record selects ModeTLS, anything else ModePlain. The consumed bytes are
// returned so the transport can replay them. Waiting is bounded by timeout
// and by ctx. A client that closes without sending yields api.ErrEndOfStream.
func DetectMode(ctx context.Context, conn net.Conn, timeout time.Duration) (api.Mode, []byte, error) {
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		_ = conn.SetReadDeadline(time.Time{})
	}()

	var b [1]byte
	n, err := conn.Read(b[:])
	if n == 0 {
		switch {
		case err == nil || errors.Is(err, io.EOF):
			return 0, nil, api.ErrEndOfStream
		case ctx.Err() != nil:
			return 0, nil, api.ErrCanceled
		}
		return 0, nil, fmt.Errorf("detect mode: %w", err)
	}
	if b[0] == tlsRecordHandshake {
		return api.ModeTLS, b[:n], nil
	}
	return api.ModePlain, b[:n], nil
}
