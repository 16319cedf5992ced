// internal/transport/shutdown_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket shutdown through shutdown(2) on the raw descriptor.

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func shutdownWrite(c net.Conn) error {
	return shutdown(c, unix.SHUT_WR)
}

func shutdownBoth(c net.Conn) error {
	return shutdown(c, unix.SHUT_RDWR)
}

func shutdown(c net.Conn, how int) error {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return fallbackShutdown(c, how == unix.SHUT_WR)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.Shutdown(int(fd), how)
	}); err != nil {
		return err
	}
	if serr == unix.ENOTCONN {
		// peer already gone; nothing left to shut down
		return nil
	}
	return serr
}

// SetNoDelay disables Nagle on accepted sockets so small pipelined
// responses are not delayed behind each other.
func SetNoDelay(c net.Conn) error {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}); err != nil {
		return err
	}
	return serr
}
