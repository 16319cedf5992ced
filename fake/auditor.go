// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-http/api"
)

// Auditor collects audit entries in memory.
type Auditor struct {
	mu      sync.Mutex
	entries []api.AuditEntry
}

// Record implements api.Auditor.
func (a *Auditor) Record(e api.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

// Entries returns a copy of the recorded entries.
func (a *Auditor) Entries() []api.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]api.AuditEntry(nil), a.entries...)
}
