// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"log"

	"github.com/momentics/hioload-http/api"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the diagnostic logger shared by sessions.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditLogger sends JSON audit lines to l.
func WithAuditLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.auditLog = l }
}

// WithAuditor replaces the audit sink.
func WithAuditor(a api.Auditor) ServerOption {
	return func(s *Server) { s.auditor = a }
}

// WithTLSConfig supplies a TLS configuration instead of loading
// Config.CertFile and Config.KeyFile.
func WithTLSConfig(cfg *tls.Config) ServerOption {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithFileSystem replaces the OS filesystem used by the dispatcher.
func WithFileSystem(fs api.FileSystem) ServerOption {
	return func(s *Server) { s.fs = fs }
}

// WithHandler replaces the file dispatcher.
func WithHandler(h api.Handler) ServerOption {
	return func(s *Server) { s.handler = h }
}

// WithHandoff replaces the WebSocket echo collaborator.
func WithHandoff(h api.Handoff) ServerOption {
	return func(s *Server) { s.handoff = h }
}
