// File: internal/transport/prefix.go
// Author: momentics <momentics@gmail.com>

package transport

import (
	"bytes"
	"io"
	"net"
)

// prefixConn replays bytes that were read ahead of the stream owner.
type prefixConn struct {
	net.Conn
	r io.Reader
}

// PrefixConn returns c itself when prefix is empty, otherwise a net.Conn
// whose reads drain a private copy of prefix before reading from c.
func PrefixConn(c net.Conn, prefix []byte) net.Conn {
	if len(prefix) == 0 {
		return c
	}
	p := append([]byte(nil), prefix...)
	return &prefixConn{Conn: c, r: io.MultiReader(bytes.NewReader(p), c)}
}

func (c *prefixConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}
