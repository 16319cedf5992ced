// Package websocket
// Author: momentics <momentics@gmail.com>
//
// WebSocket collaborator for upgraded HTTP sessions. EchoHandler receives a
// transport from a session that has read an upgrade request, completes the
// handshake with gorilla/websocket over that transport, and echoes every
// message back to the peer until either side closes.
package websocket
