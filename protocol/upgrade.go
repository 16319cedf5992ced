// File: protocol/upgrade.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Detection of HTTP→WebSocket upgrade requests. Validation of the
// handshake itself belongs to the WebSocket handler the session hands off to.

package protocol

import (
	"golang.org/x/net/http/httpguts"

	"github.com/momentics/hioload-http/api"
)

// IsUpgrade reports whether req asks to switch to the WebSocket protocol:
// an HTTP/1.1+ GET whose Connection lists "upgrade" and whose Upgrade
// lists "websocket", both compared case-insensitively.
func IsUpgrade(req *api.Request) bool {
	if req.Method != "GET" || !req.AtLeast(1, 1) {
		return false
	}
	return httpguts.HeaderValuesContainsToken(req.Values("Connection"), "upgrade") &&
		httpguts.HeaderValuesContainsToken(req.Values("Upgrade"), "websocket")
}
