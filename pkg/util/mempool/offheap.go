package mempool

import (
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// OffHeapAllocator serves every request from its own anonymous memory
// mapping. The memory lives outside the Go heap: the garbage collector never
// scans or moves it, and it is returned to the operating system as soon as
// Put is called.
//
// Slices handed out by OffHeapAllocator must not be used after Put; doing so
// faults.
type OffHeapAllocator struct{}

// Get implements Allocator.
func (OffHeapAllocator) Get(size int) ([]byte, error) {
	switch {
	case size < 0:
		return nil, ErrNegativeSize
	case size == 0:
		// Anonymous mappings cannot be empty.
		return []byte{}, nil
	}

	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %d anonymous bytes", size)
	}
	return m, nil
}

// Put implements Allocator. It reports false if the region could not be
// unmapped.
func (OffHeapAllocator) Put(b []byte) bool {
	if cap(b) == 0 {
		return true
	}
	m := mmap.MMap(b[:cap(b)])
	return m.Unmap() == nil
}
