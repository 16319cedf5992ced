// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool recycles byte slices used for short-lived serialization.
// Slices handed out by Get have zero length and at least size capacity.
type BytePool struct {
	p    sync.Pool
	size int
}

// NewBytePool creates a pool whose slices start with the given capacity.
func NewBytePool(size int) *BytePool {
	b := &BytePool{size: size}
	b.p.New = func() any {
		buf := make([]byte, 0, size)
		return &buf
	}
	return b
}

// GetBuffer returns an empty buffer from the pool.
func (b *BytePool) GetBuffer() []byte {
	return (*b.p.Get().(*[]byte))[:0]
}

// PutBuffer returns a buffer to the pool. Buffers that grew far beyond the
// pool size are left to the GC so one large response cannot pin memory.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) > 4*b.size {
		return
	}
	buf = buf[:0]
	b.p.Put(&buf)
}
