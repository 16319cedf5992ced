// internal/transport/shutdown_other.go
//go:build !linux
// +build !linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "net"

func shutdownWrite(c net.Conn) error {
	return fallbackShutdown(c, true)
}

func shutdownBoth(c net.Conn) error {
	return fallbackShutdown(c, false)
}

// SetNoDelay relies on the runtime default (Go enables TCP_NODELAY).
func SetNoDelay(c net.Conn) error {
	return nil
}
