// Package pool provides type-safe object pooling.
//
// It wraps sync.Pool with a typed API, an optional reset hook and
// allocation statistics. The package-level buffer pool serves the copy
// buffers used when streaming segment files through compression codecs.
//
// Example usage:
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
//	_, err := io.CopyBuffer(dst, src, *buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// BufferSize is the size of buffers handed out by GetBuffer
const BufferSize = 256 << 10

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with additional features like statistics tracking
// and automatic reset functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The reset function is optional and runs before an object goes back into
// the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, allocating one when it is empty
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool for reuse
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated, currently checked out and
// handed out in total. gets-allocated is the number of reuses.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// buffers holds *[]byte so Put does not allocate
var buffers = New(
	func() *[]byte {
		b := make([]byte, BufferSize)
		return &b
	},
	nil,
)

// GetBuffer returns a BufferSize byte buffer
func GetBuffer() *[]byte {
	return buffers.Get()
}

// PutBuffer returns a buffer from GetBuffer. Buffers of another size are
// dropped.
func PutBuffer(b *[]byte) {
	if b == nil || len(*b) != BufferSize {
		return
	}
	buffers.Put(b)
}
