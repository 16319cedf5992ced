// File: internal/transport/plain.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"io"
	"net"

	"github.com/momentics/hioload-http/api"
)

// plainTransport is an unencrypted TCP stream.
type plainTransport struct {
	base
	conn net.Conn // raw, or raw behind replayed prefix bytes
}

func newPlain(raw net.Conn, prefix []byte) *plainTransport {
	t := &plainTransport{conn: PrefixConn(raw, prefix)}
	t.raw = raw
	return t
}

func (t *plainTransport) Mode() api.Mode { return api.ModePlain }

// Handshake is a no-op for plain streams.
func (t *plainTransport) Handshake(ctx context.Context) error {
	return t.outcome(ctx.Err())
}

func (t *plainTransport) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	return n, t.outcome(err)
}

func (t *plainTransport) Write(p []byte) (int, error) {
	n, err := t.raw.Write(p)
	return n, t.outcome(err)
}

// ReadFrom lets io.Copy write file bodies straight to the raw socket.
func (t *plainTransport) ReadFrom(r io.Reader) (int64, error) {
	n, err := io.Copy(t.raw, r)
	return n, t.outcome(err)
}

// HalfClose shuts down the sending side without releasing the descriptor.
func (t *plainTransport) HalfClose() error {
	return t.outcome(shutdownWrite(t.raw))
}

func (t *plainTransport) Abort() error {
	return t.abort()
}

func (t *plainTransport) Conn() net.Conn {
	return t.conn
}
