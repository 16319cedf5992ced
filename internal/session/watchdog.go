// File: internal/session/watchdog.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

const never = math.MaxInt64

// Watchdog is a single reusable idle timer. Owners move the deadline
// register with Arm; the wait loop re-reads the register on every wake,
// so a deadline moved while a wait is outstanding is honoured without
// creating a new timer.
type Watchdog struct {
	deadline atomic.Int64 // unix nanoseconds, never = disarmed
	_        cpu.CacheLinePad

	kick      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	onTimeout func()
}

// NewWatchdog creates a disarmed watchdog. onTimeout runs on the wait-loop
// goroutine each time the current deadline is reached.
func NewWatchdog(onTimeout func()) *Watchdog {
	w := &Watchdog{
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		onTimeout: onTimeout,
	}
	w.deadline.Store(never)
	return w
}

// Arm sets the deadline to now+d. It never blocks on the wait loop.
func (w *Watchdog) Arm(d time.Duration) {
	select {
	case <-w.stop:
		return
	default:
	}
	w.deadline.Store(time.Now().Add(d).UnixNano())
	w.nudge()
}

// Disarm moves the deadline to infinity.
func (w *Watchdog) Disarm() {
	w.deadline.Store(never)
}

// Stop disarms permanently and terminates the wait loop.
func (w *Watchdog) Stop() {
	w.Disarm()
	w.stopOnce.Do(func() { close(w.stop) })
}

// Deadline returns the current deadline, if armed.
func (w *Watchdog) Deadline() (time.Time, bool) {
	dl := w.deadline.Load()
	if dl == never {
		return time.Time{}, false
	}
	return time.Unix(0, dl), true
}

// Expired reports whether the current deadline has passed.
func (w *Watchdog) Expired() bool {
	dl := w.deadline.Load()
	return dl != never && time.Now().UnixNano() >= dl
}

func (w *Watchdog) nudge() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run is the wait loop. It returns after Stop.
func (w *Watchdog) Run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	fired := int64(never)
	for {
		dl := w.deadline.Load()
		now := time.Now().UnixNano()
		switch {
		case dl == never || dl == fired:
			// idle until the deadline moves
		case now >= dl:
			fired = dl
			w.onTimeout()
			continue
		default:
			timer.Reset(time.Duration(dl - now))
		}

		select {
		case <-timer.C:
		case <-w.kick:
			timer.Stop()
		case <-w.stop:
			return
		}
	}
}
