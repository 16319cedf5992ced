// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent factory for session transports.

package transport

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
)

// New wraps an accepted connection. prefix holds bytes the acceptor already
// consumed while detecting the mode; they are replayed ahead of the socket.
// tlsConfig is required for api.ModeTLS and ignored otherwise.
func New(conn net.Conn, mode api.Mode, tlsConfig *tls.Config, prefix []byte) (api.Transport, error) {
	switch mode {
	case api.ModePlain:
		return newPlain(conn, prefix), nil
	case api.ModeTLS:
		if tlsConfig == nil {
			return nil, api.NewError(api.ErrCodeInvalidArgument, "tls transport requires a tls config")
		}
		return newTLS(conn, tlsConfig, prefix), nil
	default:
		return nil, api.NewError(api.ErrCodeNotSupported, "unknown transport mode").WithContext("mode", int(mode))
	}
}

// base carries the raw socket and the abort latch shared by both modes.
type base struct {
	raw     net.Conn
	aborted atomic.Bool
	once    sync.Once
}

// outcome maps any failure observed after Abort to api.ErrCanceled, so the
// owner can tell its own teardown apart from a transport error.
func (b *base) outcome(err error) error {
	if err != nil && b.aborted.Load() {
		return api.ErrCanceled
	}
	return err
}

// abort shuts down both directions and closes the socket exactly once.
func (b *base) abort() error {
	b.aborted.Store(true)
	var err error
	b.once.Do(func() {
		_ = shutdownBoth(b.raw)
		err = b.raw.Close()
	})
	return err
}

func (b *base) RemoteAddr() net.Addr {
	return b.raw.RemoteAddr()
}
