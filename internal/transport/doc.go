// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection transports for hioload-http sessions. A transport wraps an
// accepted net.Conn either as a plain byte stream or as a TLS server stream
// and exposes handshake, half-close and abort uniformly. Socket-level
// shutdown is strictly separated by build tags (linux uses shutdown(2)
// through golang.org/x/sys/unix).

package transport
