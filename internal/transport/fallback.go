// Author: momentics <momentics@gmail.com>

package transport

import "net"

// fallbackShutdown serves connections without a raw descriptor (pipes,
// wrapped conns) through the portable CloseWrite/CloseRead methods.
func fallbackShutdown(c net.Conn, writeOnly bool) error {
	type closeWriter interface{ CloseWrite() error }
	type closeReader interface{ CloseRead() error }

	cw, ok := c.(closeWriter)
	if !ok {
		return nil
	}
	if err := cw.CloseWrite(); err != nil || writeOnly {
		return err
	}
	if cr, ok := c.(closeReader); ok {
		return cr.CloseRead()
	}
	return nil
}
