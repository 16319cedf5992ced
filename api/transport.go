// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the connection transport abstraction shared by plain TCP
// and TLS-wrapped sockets.

package api

import (
	"context"
	"net"
)

// Mode selects the transport flavour of a connection. It is decided once by
// the acceptor and never changes for the lifetime of a session.
type Mode int

const (
	ModePlain Mode = iota
	ModeTLS
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeTLS:
		return "tls"
	default:
		return "unknown"
	}
}

// Transport abstracts a full-duplex byte stream over a raw or TLS socket.
// Read and Write may run concurrently with each other; every other method
// is called from the owning session only.
type Transport interface {
	// Mode reports whether the stream is plain or encrypted.
	Mode() Mode

	// Handshake performs the TLS server handshake. No-op for plain streams.
	Handshake(ctx context.Context) error

	// Read reads decrypted bytes from the peer.
	Read(p []byte) (n int, err error)

	// Write writes bytes to the peer.
	Write(p []byte) (n int, err error)

	// HalfClose shuts down the sending direction. TLS streams send
	// close_notify first.
	HalfClose() error

	// Abort hard-closes both directions. Pending operations fail with ErrCanceled.
	Abort() error

	// Conn exposes the stream as a net.Conn for protocol handoff.
	Conn() net.Conn

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr
}
