// Package api
// Author: momentics <momentics@gmail.com>
//
// Audit record contract for dispatched requests.

package api

// AuditRemote identifies the peer of an audited request.
type AuditRemote struct {
	Addr string `json:"addr"`
	Port int    `json:"port"`
}

// AuditEntry describes one request as received, before any dispatch decision.
type AuditEntry struct {
	Remote  AuditRemote   `json:"remote"`
	Method  string        `json:"method"`
	Target  string        `json:"target"`
	Version string        `json:"version"`
	Fields  []HeaderField `json:"fields"`
}

// Auditor records entries. Record is fire-and-forget and must never block.
type Auditor interface {
	Record(entry AuditEntry)
}
