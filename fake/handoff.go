// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-http/api"
)

// HandoffCall captures one api.Handoff invocation.
type HandoffCall struct {
	Transport api.Transport
	Buffered  []byte
	Request   *api.Request
}

// Handoff records upgrade handoffs and publishes them on Calls.
type Handoff struct {
	mu    sync.Mutex
	count int
	Calls chan HandoffCall
}

// NewHandoff creates a recorder with room for a few calls.
func NewHandoff() *Handoff {
	return &Handoff{Calls: make(chan HandoffCall, 4)}
}

// Handoff implements api.Handoff.
func (h *Handoff) Handoff(tr api.Transport, buffered []byte, req *api.Request) {
	h.mu.Lock()
	h.count++
	h.mu.Unlock()
	h.Calls <- HandoffCall{Transport: tr, Buffered: buffered, Request: req}
}

// Count reports how many handoffs happened.
func (h *Handoff) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
