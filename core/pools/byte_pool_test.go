package pools

import "testing"

func TestBytePoolGet(t *testing.T) {
	pool := NewBytePool()

	tests := []struct {
		size    int
		wantCap int
	}{
		{1, 1024},
		{1024, 1024},
		{1025, 4096},
		{65536, 65536},
		{70000, 70000},
	}

	for _, tt := range tests {
		buf := pool.Get(tt.size)
		if len(*buf) != tt.size {
			t.Errorf("Size %d: expected len %d, got %d", tt.size, tt.size, len(*buf))
		}
		if cap(*buf) != tt.wantCap {
			t.Errorf("Size %d: expected cap %d, got %d", tt.size, tt.wantCap, cap(*buf))
		}
		pool.Put(buf)
	}

	stats := pool.Stats()
	if stats.Gets != 5 {
		t.Errorf("Expected 5 gets, got %d", stats.Gets)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestBytePoolReturnsZeroedBuffers(t *testing.T) {
	pool := NewBytePoolWithSizes([]int{16})

	buf := pool.Get(16)
	for i := range *buf {
		(*buf)[i] = 0xff
	}
	pool.Put(buf)

	again := pool.Get(8)
	for i, b := range *again {
		if b != 0 {
			t.Fatalf("Byte %d not zeroed: %x", i, b)
		}
	}
}

func TestBytePoolPutForeign(t *testing.T) {
	pool := NewBytePoolWithSizes([]int{16})
	foreign := make([]byte, 10)
	pool.Put(&foreign)
	pool.Put(nil)
}

func BenchmarkBytePool(b *testing.B) {
	pool := NewBytePool()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := pool.Get(1024)
		pool.Put(buf)
	}
}
