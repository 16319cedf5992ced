// Package audit writes request audit records as JSON lines.
//
// Records are queued and encoded on a background goroutine so that Record
// never blocks request dispatch. When the queue is full the record is
// dropped and counted.
package audit

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
)

// DefaultBuffer is the number of records that may wait for encoding.
const DefaultBuffer = 1024

// Logger is an asynchronous api.Auditor.
type Logger struct {
	out     *log.Logger
	entries chan api.AuditEntry
	dropped atomic.Int64
	closed  atomic.Bool
	mu      sync.RWMutex
	done    chan struct{}
}

var _ api.Auditor = (*Logger)(nil)

// NewLogger starts an audit logger writing one JSON object per line to out.
func NewLogger(out *log.Logger, buffer int) *Logger {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	l := &Logger{
		out:     out,
		entries: make(chan api.AuditEntry, buffer),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Record queues e without blocking.
func (l *Logger) Record(e api.AuditEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	select {
	case l.entries <- e:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many records were discarded.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes queued records and stops the writer. Later records are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed.Swap(true) {
		l.mu.Unlock()
		<-l.done
		return nil
	}
	close(l.entries)
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.entries {
		b, err := json.Marshal(e)
		if err != nil {
			l.out.Printf("audit: encode: %v", err)
			continue
		}
		l.out.Print(string(b))
	}
}
