// File: internal/session/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded pipeline queue. The head item is always the one being written;
// every queued item, the head included, counts against the limit.

package session

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/api"
)

// Item is a response waiting for the wire.
type Item struct {
	Response        *api.Response
	CloseAfterWrite bool
}

// WriteQueue delivers responses strictly in push order and reports when
// the reader must pause.
type WriteQueue struct {
	items     *queue.Queue
	limit     int
	write     func(*Item)
	halfClose func()
}

// NewWriteQueue creates a queue holding at most limit items.
// write starts the asynchronous write of an item; halfClose runs after an
// item flagged CloseAfterWrite has been written.
func NewWriteQueue(limit int, write func(*Item), halfClose func()) *WriteQueue {
	if limit <= 0 {
		limit = DefaultQueueDepth
	}
	return &WriteQueue{
		items:     queue.New(),
		limit:     limit,
		write:     write,
		halfClose: halfClose,
	}
}

// Push enqueues it and starts writing it when nothing else is queued.
// It reports whether the queue is now full.
func (q *WriteQueue) Push(it *Item) bool {
	q.items.Add(it)
	if q.items.Length() == 1 {
		q.write(it)
	}
	return q.IsFull()
}

// IsFull reports whether the queue has reached the limit.
func (q *WriteQueue) IsFull() bool {
	return q.items.Length() >= q.limit
}

// OnWriteComplete pops the written head. A CloseAfterWrite item triggers
// the half-close instead of the next write. It reports whether reading
// may resume.
func (q *WriteQueue) OnWriteComplete() bool {
	if q.items.Length() == 0 {
		return true
	}
	done := q.items.Remove().(*Item)
	if done.CloseAfterWrite {
		q.halfClose()
		return false
	}
	if q.items.Length() > 0 {
		q.write(q.items.Peek().(*Item))
	}
	return !q.IsFull()
}

// Len returns the number of queued items including the one in flight.
func (q *WriteQueue) Len() int {
	return q.items.Length()
}

// Drain discards every queued item, releasing response bodies.
func (q *WriteQueue) Drain() {
	for q.items.Length() > 0 {
		q.items.Remove().(*Item).Response.Close()
	}
}
