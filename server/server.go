// File: server/server.go
// Package server implements the connection acceptor, per-connection session
// startup and graceful shutdown of the HTTP(S) file server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/audit"
	"github.com/momentics/hioload-http/internal/dispatch"
	"github.com/momentics/hioload-http/internal/session"
	"github.com/momentics/hioload-http/internal/transport"
	"github.com/momentics/hioload-http/internal/websocket"
	"github.com/momentics/hioload-http/protocol"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrServerClosed   = errors.New("server closed")
)

// Metric keys reported by the acceptor.
const (
	MetricAccepted    = "server.accepted"
	MetricClosed      = "server.closed"
	MetricSniffErrors = "server.sniff_errors"
)

// Server accepts connections and runs one session per connection.
type Server struct {
	cfg       *Config
	tlsConfig *tls.Config
	fs        api.FileSystem
	handler   api.Handler
	handoff   api.Handoff
	auditor   api.Auditor
	auditLog  *log.Logger
	logger    *log.Logger
	control   *control.Controller
	sessions  *session.Registry
	closers   []io.Closer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	nextID atomic.Uint64
	tuning atomic.Pointer[tuning]

	mu       sync.Mutex
	listener *transport.Listener
	closed   bool
}

var _ api.GracefulShutdown = (*Server)(nil)

// NewServer builds the server and its collaborators.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   log.Default(),
		control:  control.NewController(),
		sessions: session.NewRegistry(cfg.RegistryShards),
	}
	for _, o := range opts {
		o(s)
	}

	if cfg.Mode != ModePlain && s.tlsConfig == nil {
		certs, err := LoadCertificates(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = ServerTLSConfig(certs)
	}

	if s.auditor == nil {
		out := s.auditLog
		if out == nil {
			out = log.New(os.Stdout, "", 0)
		}
		al := audit.NewLogger(out, cfg.AuditBuffer)
		s.auditor = al
		s.closers = append(s.closers, al)
		s.control.RegisterDebugProbe("audit.dropped", func() any { return al.Dropped() })
	}
	if s.handler == nil {
		s.handler = dispatch.New(cfg.Root, s.fs,
			dispatch.WithServerName(cfg.ServerName),
			dispatch.WithAuditor(s.auditor))
	}
	if s.handoff == nil {
		echo := websocket.NewEchoHandler(
			websocket.WithLogger(s.logger),
			websocket.WithMetrics(s.control.Metrics()))
		s.handoff = echo
		s.control.RegisterDebugProbe("websocket.active", func() any { return echo.Active() })
	}
	if c, ok := s.handoff.(io.Closer); ok {
		s.closers = append([]io.Closer{c}, s.closers...)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.tuning.Store(&tuning{idle: cfg.IdleTimeout, queueDepth: cfg.QueueDepth})
	if err := s.control.SetConfig(cfg.snapshot()); err != nil {
		return nil, err
	}
	s.control.OnReload(s.reload)
	s.control.RegisterDebugProbe("sessions.active", func() any { return s.sessions.Len() })
	s.control.RegisterDebugProbe("sessions.states", func() any { return s.sessions.States() })
	return s, nil
}

// ListenAndServe binds Config.ListenAddr and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := transport.Listen(s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.serve(transport.NewListener(ln))
}

func (s *Server) serve(ln *transport.Listener) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	case s.listener != nil:
		s.mu.Unlock()
		ln.Close()
		return ErrAlreadyRunning
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Printf("server: serving %s on %s (%s)", s.cfg.Root, ln.Addr(), s.cfg.Mode)
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, transport.ErrListenerClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				delay = backoff(delay)
				s.logger.Printf("server: %v; retrying in %v", err, delay)
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// handle runs one connection to completion.
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	metrics := s.control.Metrics()
	metrics.Add(MetricAccepted, 1)
	defer metrics.Add(MetricClosed, 1)

	mode, prefix, err := s.detectMode(conn)
	if err != nil {
		if !errors.Is(err, api.ErrEndOfStream) && !errors.Is(err, api.ErrCanceled) {
			metrics.Add(MetricSniffErrors, 1)
			s.logger.Printf("server: %s: %v", conn.RemoteAddr(), err)
		}
		conn.Close()
		return
	}
	tr, err := transport.New(conn, mode, s.tlsConfig, prefix)
	if err != nil {
		s.logger.Printf("server: %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	id := strconv.FormatUint(s.nextID.Add(1), 10)
	tn := s.tuning.Load()
	sess := session.New(id, tr, s.handler, s.handoff,
		session.WithLogger(s.logger),
		session.WithMetrics(metrics),
		session.WithTimeout(tn.idle),
		session.WithQueueDepth(tn.queueDepth),
		session.WithLimits(protocol.Limits{
			MaxHeaderBytes: s.cfg.MaxHeaderBytes,
			MaxBodyBytes:   s.cfg.MaxBodyBytes,
		}))
	s.sessions.Add(sess)
	defer s.sessions.Delete(id)
	sess.Run(s.ctx)
}

// reload applies "timeout.idle" and "queue.depth" from the control plane
// to sessions accepted afterwards. Invalid values are logged and ignored.
func (s *Server) reload() {
	cfg := s.control.GetConfig()
	next := *s.tuning.Load()
	if v, ok := cfg["timeout.idle"]; ok {
		d, err := parseDuration(v)
		if err != nil || d <= 0 {
			s.logger.Printf("server: reload: bad timeout.idle %v", v)
		} else {
			next.idle = d
		}
	}
	if v, ok := cfg["queue.depth"]; ok {
		n, ok := v.(int)
		if !ok || n <= 0 {
			s.logger.Printf("server: reload: bad queue.depth %v", v)
		} else {
			next.queueDepth = n
		}
	}
	if prev := s.tuning.Swap(&next); *prev != next {
		s.logger.Printf("server: reload: idle timeout %v, queue depth %d", next.idle, next.queueDepth)
	}
}

func (s *Server) detectMode(conn net.Conn) (api.Mode, []byte, error) {
	switch s.cfg.Mode {
	case ModeTLS:
		return api.ModeTLS, nil, nil
	case ModeAuto:
		return transport.DetectMode(s.ctx, conn, s.cfg.SniffTimeout)
	default:
		return api.ModePlain, nil, nil
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Control exposes runtime config, metrics and debug probes.
func (s *Server) Control() api.Control {
	return s.control
}

// ActiveSessions returns the number of live sessions.
func (s *Server) ActiveSessions() int {
	return s.sessions.Len()
}

// Shutdown stops accepting, cancels every session and waits up to
// Config.ShutdownTimeout for them to finish.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				s.logger.Printf("server: close: %v", err)
			}
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
		return fmt.Errorf("shutdown timeout after %v", s.cfg.ShutdownTimeout)
	}
}
