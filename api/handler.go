// File: api/handler.go
// Package api defines Handler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// Handler turns a parsed request into a response. Implementations never
// fail: every outcome is expressed as a Response.
type Handler interface {
	Dispatch(req *Request, remote net.Addr) *Response
}
