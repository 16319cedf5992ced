// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/internal/session"
	"github.com/momentics/hioload-http/protocol"
)

// Transport modes accepted in Config.Mode.
const (
	ModePlain = "plain"
	ModeTLS   = "tls"
	ModeAuto  = "auto" // sniff the first byte of every connection
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr      string        // TCP bind address, e.g. ":8080"
	Root            string        // document root
	Mode            string        // plain, tls or auto
	CertFile        string        // PEM certificate for tls/auto
	KeyFile         string        // PEM key for tls/auto
	ServerName      string        // Server header value, empty to omit
	IdleTimeout     time.Duration // watchdog window per handshake, read and shutdown
	QueueDepth      int           // queued responses before reading pauses
	MaxHeaderBytes  int           // request line plus headers
	MaxBodyBytes    int64         // largest request body discarded
	SniffTimeout    time.Duration // wait for the first byte in auto mode
	ShutdownTimeout time.Duration // graceful shutdown timeout
	AuditBuffer     int           // queued audit records before dropping
	RegistryShards  int           // session registry shards
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		Root:            ".",
		Mode:            ModePlain,
		ServerName:      "hioload-http",
		IdleTimeout:     session.DefaultTimeout,
		QueueDepth:      session.DefaultQueueDepth,
		MaxHeaderBytes:  protocol.DefaultMaxHeaderBytes,
		MaxBodyBytes:    protocol.DefaultMaxBodyBytes,
		SniffTimeout:    session.DefaultTimeout,
		ShutdownTimeout: 30 * time.Second,
		AuditBuffer:     1024,
		RegistryShards:  16,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	invalid := func(field, msg string) error {
		return api.NewError(api.ErrCodeInvalidArgument, msg).WithContext("field", field)
	}
	switch {
	case c.ListenAddr == "":
		return invalid("ListenAddr", "listen address is required")
	case c.Root == "":
		return invalid("Root", "document root is required")
	case c.Mode != ModePlain && c.Mode != ModeTLS && c.Mode != ModeAuto:
		return invalid("Mode", "mode must be plain, tls or auto")
	case c.IdleTimeout <= 0:
		return invalid("IdleTimeout", "idle timeout must be positive")
	case c.QueueDepth <= 0:
		return invalid("QueueDepth", "queue depth must be positive")
	case c.MaxHeaderBytes < 0 || c.MaxBodyBytes < 0:
		return invalid("MaxHeaderBytes", "limits must not be negative")
	case c.ShutdownTimeout <= 0:
		return invalid("ShutdownTimeout", "shutdown timeout must be positive")
	}
	return nil
}

// tuning holds the settings the control plane may change at runtime.
type tuning struct {
	idle       time.Duration
	queueDepth int
}

func parseDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		return time.ParseDuration(d)
	}
	return 0, fmt.Errorf("unsupported duration %T", v)
}

// snapshot flattens the configuration for the control plane.
func (c *Config) snapshot() map[string]any {
	return map[string]any{
		"listen.addr":      c.ListenAddr,
		"root":             c.Root,
		"mode":             c.Mode,
		"server.name":      c.ServerName,
		"timeout.idle":     c.IdleTimeout.String(),
		"timeout.sniff":    c.SniffTimeout.String(),
		"timeout.shutdown": c.ShutdownTimeout.String(),
		"queue.depth":      c.QueueDepth,
		"limits.header":    c.MaxHeaderBytes,
		"limits.body":      c.MaxBodyBytes,
		"audit.buffer":     c.AuditBuffer,
		"registry.shards":  c.RegistryShards,
	}
}
