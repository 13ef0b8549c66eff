package pools

import (
	"sync"
	"sync/atomic"
)

// Size tiers for connection read buffers. A request larger than the
// largest tier gets a one-off allocation.
var defaultSizes = []int{
	1024,  // default read limit
	4096,  // typical browser request with cookies
	16384, // large forms
	65536, // upper bound worth keeping around
}

// BytePool is a tiered pool of fixed-length byte slices
type BytePool struct {
	pools []sync.Pool
	sizes []int

	gets   atomic.Uint64
	misses atomic.Uint64
}

// BytePoolStats is a snapshot of pool usage
type BytePoolStats struct {
	Gets   uint64
	Misses uint64
}

// NewBytePool creates a byte pool with the standard size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom ascending size tiers
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]sync.Pool, len(sizes)),
		sizes: append([]int(nil), sizes...),
	}

	for i, size := range bp.sizes {
		sz := size
		bp.pools[i].New = func() any {
			buf := make([]byte, sz)
			return &buf
		}
	}

	return bp
}

// Get returns a zeroed buffer of exactly size bytes
func (bp *BytePool) Get(size int) *[]byte {
	bp.gets.Add(1)

	for i, tier := range bp.sizes {
		if size <= tier {
			buf := bp.pools[i].Get().(*[]byte)
			*buf = (*buf)[:size]
			clear(*buf)
			return buf
		}
	}

	bp.misses.Add(1)
	buf := make([]byte, size)
	return &buf
}

// Put returns a buffer obtained from Get. Buffers of foreign capacity are
// dropped.
func (bp *BytePool) Put(buf *[]byte) {
	if buf == nil {
		return
	}

	capacity := cap(*buf)
	for i, tier := range bp.sizes {
		if capacity == tier {
			*buf = (*buf)[:capacity]
			bp.pools[i].Put(buf)
			return
		}
	}
}

// Stats returns usage counters
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Gets:   bp.gets.Load(),
		Misses: bp.misses.Load(),
	}
}
