package pool_test

import (
	"testing"

	"github.com/momentics/hioload-http/pool"
)

func TestBytePoolReturnsEmptyBuffers(t *testing.T) {
	p := pool.NewBytePool(64)
	buf := p.GetBuffer()
	if len(buf) != 0 || cap(buf) < 64 {
		t.Fatalf("unexpected buffer len=%d cap=%d", len(buf), cap(buf))
	}
	buf = append(buf, "hello"...)
	p.PutBuffer(buf)

	again := p.GetBuffer()
	if len(again) != 0 {
		t.Fatalf("recycled buffer not reset: len=%d", len(again))
	}
}

func TestBytePoolDropsOversized(t *testing.T) {
	p := pool.NewBytePool(8)
	big := make([]byte, 0, 1024)
	p.PutBuffer(big) // must not panic, silently dropped
	if buf := p.GetBuffer(); cap(buf) == 1024 {
		t.Fatal("oversized buffer was pooled")
	}
}
