// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown unifies teardown of long-lived components.
type GracefulShutdown interface {
	// Shutdown stops accepting work, releases resources, and reports
	// an error when teardown did not complete in time.
	Shutdown() error
}
