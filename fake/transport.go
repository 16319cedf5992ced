// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
)

// Transport is a fake api.Transport over any net.Conn, usually one end of
// net.Pipe. It records half-close and abort calls instead of touching
// sockets, and can hold the handshake open to emulate a stalled peer.
type Transport struct {
	conn net.Conn
	mode api.Mode

	mu             sync.Mutex
	handshakeErr   error
	halfCloseErr   error
	stallHandshake bool
	handshakes     int
	halfCloses     int
	aborts         int

	aborted      atomic.Bool
	abortCh      chan struct{}
	halfClosedCh chan struct{}
	abortOnce    sync.Once
	halfOnce     sync.Once
}

// NewTransport wraps conn as a transport in the given mode.
func NewTransport(conn net.Conn, mode api.Mode) *Transport {
	return &Transport{
		conn:         conn,
		mode:         mode,
		abortCh:      make(chan struct{}),
		halfClosedCh: make(chan struct{}),
	}
}

// SetHandshakeError configures the error returned by Handshake.
func (t *Transport) SetHandshakeError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handshakeErr = err
}

// SetHalfCloseError configures the error returned by HalfClose.
func (t *Transport) SetHalfCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halfCloseErr = err
}

// StallHandshake makes Handshake block until the context ends or Abort runs.
func (t *Transport) StallHandshake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stallHandshake = true
}

func (t *Transport) Mode() api.Mode { return t.mode }

// Handshake implements api.Transport.Handshake.
func (t *Transport) Handshake(ctx context.Context) error {
	t.mu.Lock()
	t.handshakes++
	stall, err := t.stallHandshake, t.handshakeErr
	t.mu.Unlock()
	if stall {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.abortCh:
			return api.ErrCanceled
		}
	}
	return err
}

func (t *Transport) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	return n, t.outcome(err)
}

func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	return n, t.outcome(err)
}

// HalfClose records the call; the pipe itself stays open.
func (t *Transport) HalfClose() error {
	t.mu.Lock()
	t.halfCloses++
	err := t.halfCloseErr
	t.mu.Unlock()
	t.halfOnce.Do(func() { close(t.halfClosedCh) })
	return err
}

// Abort closes the underlying conn, releasing pending reads and writes.
func (t *Transport) Abort() error {
	t.mu.Lock()
	t.aborts++
	t.mu.Unlock()
	t.aborted.Store(true)
	t.abortOnce.Do(func() {
		close(t.abortCh)
		t.conn.Close()
	})
	return nil
}

func (t *Transport) Conn() net.Conn       { return t.conn }
func (t *Transport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }

// HalfClosed is closed after the first HalfClose call.
func (t *Transport) HalfClosed() <-chan struct{} { return t.halfClosedCh }

// Aborted is closed after the first Abort call.
func (t *Transport) Aborted() <-chan struct{} { return t.abortCh }

// Counts returns how many times each lifecycle method ran.
func (t *Transport) Counts() (handshakes, halfCloses, aborts int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handshakes, t.halfCloses, t.aborts
}

func (t *Transport) outcome(err error) error {
	if err != nil && t.aborted.Load() {
		return api.ErrCanceled
	}
	return err
}
