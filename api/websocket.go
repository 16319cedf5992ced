// File: api/websocket.go
// Author: momentics <momentics@gmail.com>
//
// Defines the handoff contract used when a request asks to switch protocols.

package api

// Handoff takes ownership of a transport whose last request asked for a
// WebSocket upgrade. The call is fire-and-forget: after it the caller never
// touches the transport again.
type Handoff interface {
	// Handoff receives the transport, the bytes already read past the
	// upgrade request, and the upgrade request itself.
	Handoff(tr Transport, buffered []byte, req *Request)
}
