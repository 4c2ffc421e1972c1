package mempool

import (
	"github.com/pkg/errors"
	"github.com/prometheus/prometheus/util/pool"
)

// ErrNegativeSize is returned by allocators when asked for a negative number
// of bytes.
var ErrNegativeSize = errors.New("allocation size must not be negative")

// Allocator hands out byte slices that back memory blocks.
//
// A slice returned by Get belongs to the caller until it is passed to Put.
// Put must be called at most once per slice, with the slice exactly as
// returned by Get.
type Allocator interface {
	Get(size int) ([]byte, error)
	Put([]byte) bool
}

// SimpleHeapAllocator allocates a new byte slice every time and does not re-cycle buffers.
type SimpleHeapAllocator struct{}

func (a *SimpleHeapAllocator) Get(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrNegativeSize
	}
	return make([]byte, size), nil
}

func (a *SimpleHeapAllocator) Put([]byte) bool {
	return true
}

// BytePool uses a sync.Pool per size bucket to re-cycle already allocated buffers.
type BytePool struct {
	pool *pool.Pool
}

func NewBytePoolAllocator(minSize, maxSize int, factor float64) *BytePool {
	return &BytePool{
		pool: pool.New(
			minSize, maxSize, factor,
			func(size int) interface{} {
				return make([]byte, size)
			}),
	}
}

// Get implements Allocator. Recycled buffers are cleared before they are
// handed out.
func (p *BytePool) Get(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrNegativeSize
	}
	b := p.pool.Get(size).([]byte)
	if cap(b) < size {
		// Only reachable if a buffer with a smaller capacity was put back.
		return make([]byte, size), nil
	}
	b = b[:size]
	clear(b)
	return b, nil
}

// Put implements Allocator
func (p *BytePool) Put(b []byte) bool {
	if cap(b) == 0 {
		return true
	}
	p.pool.Put(b[:0])
	return true
}
