// File: internal/session/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection HTTP session: TLS handshake, pipelined request reading,
// ordered response writing, graceful end-of-stream shutdown, idle timeout
// and WebSocket handoff.

package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/protocol"
)

const (
	// DefaultTimeout is the idle budget for every read, handshake and shutdown.
	DefaultTimeout = 15 * time.Second
	// DefaultQueueDepth is the number of queued responses that pauses reading.
	DefaultQueueDepth = 16
)

// Metric keys reported by sessions.
const (
	MetricRequests     = "session.requests"
	MetricTimeouts     = "session.timeouts"
	MetricHandoffs     = "session.handoffs"
	MetricErrors       = "session.errors"
	MetricStatusPrefix = "session.status."
)

var errNoHandoff = errors.New("session: upgrade requested without a handoff target")

type eventKind int

const (
	evHandshake eventKind = iota
	evRead
	evWrite
	evShutdown
	evLinger
	evTimeout
)

type event struct {
	kind eventKind
	req  *api.Request
	err  error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the counter sink.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithQueueDepth overrides DefaultQueueDepth.
func WithQueueDepth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueDepth = n
		}
	}
}

// WithLimits sets request parsing limits.
func WithLimits(l protocol.Limits) Option {
	return func(s *Session) { s.limits = l }
}

// Session drives one connection. Run owns every field below the
// collaborators; other goroutines only touch state, watchdog and done.
type Session struct {
	id      string
	tr      api.Transport
	handler api.Handler
	handoff api.Handoff
	logger  *log.Logger
	metrics *control.MetricsRegistry

	timeout    time.Duration
	queueDepth int
	limits     protocol.Limits

	state    atomic.Int32
	watchdog *Watchdog
	events   chan event
	done     chan struct{}

	ctx      context.Context
	br       *bufio.Reader
	queue    *WriteQueue
	pending  int
	reading  bool
	eof      bool // shutdown initiated
	drainEOF bool // peer finished while responses were queued
	noMore   bool // last request asked for close
	canceled bool
	upgrade  *api.Request
	served   int
}

// New creates an idle session over tr. handoff may be nil when upgrades
// are not served; an upgrade request then closes the connection.
func New(id string, tr api.Transport, h api.Handler, handoff api.Handoff, opts ...Option) *Session {
	s := &Session{
		id:         id,
		tr:         tr,
		handler:    h,
		handoff:    handoff,
		logger:     log.Default(),
		timeout:    DefaultTimeout,
		queueDepth: DefaultQueueDepth,
		events:     make(chan event, 4),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	bufSize := s.limits.MaxHeaderBytes
	if bufSize < protocol.DefaultMaxHeaderBytes {
		bufSize = protocol.DefaultMaxHeaderBytes
	}
	s.br = bufio.NewReaderSize(tr, bufSize)
	s.queue = NewWriteQueue(s.queueDepth, s.startWrite, s.shutdown)
	s.watchdog = NewWatchdog(s.postTimeout)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state; safe from any goroutine.
func (s *Session) State() api.SessionState { return api.SessionState(s.state.Load()) }

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deadline returns the watchdog deadline, if armed.
func (s *Session) Deadline() (time.Time, bool) { return s.watchdog.Deadline() }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	if a := s.tr.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Served returns how many requests were dispatched. Valid after Done.
func (s *Session) Served() int { return s.served }

// Run starts the session and blocks until it is closed or handed off.
// Cancelling ctx aborts the transport and ends the session silently.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	go s.watchdog.Run()
	s.start()

	cancel := ctx.Done()
	for !s.retired() {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-cancel:
			cancel = nil
			s.cancel()
		}
	}

	s.watchdog.Stop()
	close(s.done)
	s.queue.Drain()
	if s.State() == api.StateClosed {
		s.tr.Abort()
	}
}

func (s *Session) retired() bool {
	return s.State().Terminal() && s.pending == 0
}

func (s *Session) setState(st api.SessionState) {
	s.state.Store(int32(st))
}

func (s *Session) logf(format string, args ...any) {
	s.logger.Printf("session %s: "+format, append([]any{s.id}, args...)...)
}

// spawn runs op off the loop; its event is always collected before Run returns.
func (s *Session) spawn(op func() event) {
	s.pending++
	go func() { s.events <- op() }()
}

func (s *Session) postTimeout() {
	select {
	case s.events <- event{kind: evTimeout}:
	case <-s.done:
	}
}

func (s *Session) handle(ev event) {
	if ev.kind != evTimeout {
		s.pending--
	}
	switch ev.kind {
	case evHandshake:
		s.onHandshake(ev.err)
	case evRead:
		s.reading = false
		s.onRead(ev.req, ev.err)
	case evWrite:
		s.onWrite(ev.err)
	case evShutdown:
		s.onShutdown(ev.err)
	case evLinger:
		s.watchdog.Disarm()
	case evTimeout:
		s.onTimeout()
	}
}

// dropped reports completions that must be ignored without logging.
func (s *Session) dropped(err error) bool {
	return s.canceled ||
		errors.Is(err, api.ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		s.State().Terminal()
}

func (s *Session) start() {
	s.watchdog.Arm(s.timeout)
	if s.tr.Mode() == api.ModeTLS {
		s.setState(api.StateHandshaking)
		s.spawn(func() event {
			return event{kind: evHandshake, err: s.tr.Handshake(s.ctx)}
		})
		return
	}
	s.read()
}

func (s *Session) onHandshake(err error) {
	if s.dropped(err) || s.eof {
		return
	}
	if err != nil {
		s.fail("handshake", err)
		return
	}
	s.read()
}

func (s *Session) readable() bool {
	return !s.reading && !s.eof && !s.drainEOF && !s.noMore &&
		s.upgrade == nil && !s.State().Terminal()
}

func (s *Session) read() {
	if !s.readable() {
		return
	}
	s.watchdog.Arm(s.timeout)
	s.reading = true
	s.setState(api.StateReading)
	s.spawn(func() event {
		req, err := protocol.ReadRequest(s.br, s.limits)
		return event{kind: evRead, req: req, err: err}
	})
}

func (s *Session) onRead(req *api.Request, err error) {
	if s.dropped(err) || s.eof {
		return
	}
	if errors.Is(err, api.ErrEndOfStream) {
		if s.queue.Len() > 0 {
			s.drainEOF = true
			s.setState(api.StateWriting)
			return
		}
		s.shutdown()
		return
	}
	if err != nil {
		s.fail("read", err)
		return
	}

	if protocol.IsUpgrade(req) {
		s.beginHandoff(req)
		return
	}

	res := s.handler.Dispatch(req, s.tr.RemoteAddr())
	s.served++
	s.metrics.Add(MetricRequests, 1)
	s.metrics.Add(MetricStatusPrefix+strconv.Itoa(res.Status), 1)

	closing := !res.KeepAlive
	if closing {
		s.noMore = true
	}
	full := s.queue.Push(&Item{Response: res, CloseAfterWrite: closing})
	if full || closing {
		s.setState(api.StateWriting)
		return
	}
	s.read()
}

func (s *Session) startWrite(it *Item) {
	s.setState(api.StateWriting)
	s.spawn(func() event {
		err := protocol.WriteResponse(s.tr, it.Response)
		it.Response.Close()
		return event{kind: evWrite, err: err}
	})
}

func (s *Session) onWrite(err error) {
	if s.dropped(err) || s.eof {
		return
	}
	if err != nil {
		s.fail("write", err)
		return
	}
	resume := s.queue.OnWriteComplete()
	if s.eof {
		return
	}
	if s.queue.Len() == 0 {
		switch {
		case s.upgrade != nil:
			s.handOff()
			return
		case s.drainEOF:
			s.shutdown()
			return
		}
	}
	if s.queue.Len() == 0 && s.reading {
		s.setState(api.StateReading)
	}
	if resume {
		s.read()
	}
}

// shutdown performs the graceful close of the sending direction.
func (s *Session) shutdown() {
	if s.eof {
		return
	}
	s.eof = true
	s.setState(api.StateEofShutdown)
	s.watchdog.Arm(s.timeout)
	s.spawn(func() event {
		return event{kind: evShutdown, err: s.tr.HalfClose()}
	})
}

func (s *Session) onShutdown(err error) {
	if s.dropped(err) {
		return
	}
	if err != nil {
		s.fail("shutdown", err)
		return
	}
	s.setState(api.StateClosed)
	if s.pending > 0 {
		// Release a handshake or read still waiting on the peer.
		s.watchdog.Disarm()
		s.tr.Abort()
		return
	}
	if s.tr.Mode() == api.ModeTLS {
		s.watchdog.Disarm()
		return
	}
	s.linger()
}

// linger keeps a plain connection open after its send side is shut down,
// discarding input until the peer closes or the watchdog fires.
func (s *Session) linger() {
	s.spawn(func() event {
		_, err := io.Copy(io.Discard, s.br)
		return event{kind: evLinger, err: err}
	})
}

func (s *Session) onTimeout() {
	if !s.watchdog.Expired() {
		return
	}
	switch st := s.State(); {
	case st == api.StateHandedOff:
		return
	case st == api.StateClosed:
		s.watchdog.Disarm()
		s.tr.Abort()
		return
	case s.tr.Mode() == api.ModeTLS && s.eof:
		return
	}

	s.metrics.Add(MetricTimeouts, 1)
	if s.tr.Mode() == api.ModeTLS {
		s.watchdog.Disarm()
		s.shutdown()
		return
	}
	s.abort()
}

func (s *Session) beginHandoff(req *api.Request) {
	s.watchdog.Disarm()
	s.upgrade = req
	if s.queue.Len() == 0 {
		s.handOff()
		return
	}
	s.setState(api.StateWriting)
}

func (s *Session) handOff() {
	req := s.upgrade
	if s.handoff == nil {
		s.fail("upgrade", errNoHandoff)
		return
	}
	s.watchdog.Stop()
	s.setState(api.StateHandedOff)
	s.metrics.Add(MetricHandoffs, 1)
	go s.handoff.Handoff(s.tr, s.unread(), req)
}

// unread returns a copy of the bytes read past the upgrade request.
func (s *Session) unread() []byte {
	n := s.br.Buffered()
	if n == 0 {
		return nil
	}
	b, _ := s.br.Peek(n)
	return append([]byte(nil), b...)
}

func (s *Session) cancel() {
	s.canceled = true
	s.watchdog.Disarm()
	if s.State() == api.StateHandedOff {
		return
	}
	s.setState(api.StateClosed)
	s.tr.Abort()
}

func (s *Session) fail(op string, err error) {
	s.logf("%s: %v", op, err)
	s.metrics.Add(MetricErrors, 1)
	s.abort()
}

func (s *Session) abort() {
	s.watchdog.Disarm()
	s.setState(api.StateClosed)
	s.tr.Abort()
}
