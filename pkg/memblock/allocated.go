package memblock

import (
	"io"

	"github.com/pkg/errors"

	"github.com/grafana/memblock/pkg/util/mempool"
)

// DefaultAllocator backs AllocatedBlocks created with a nil allocator. It
// serves memory outside the Go heap.
var DefaultAllocator mempool.Allocator = mempool.OffHeapAllocator{}

// AllocatedBlock owns a private allocation, typically holding bytes that
// were decoded or decompressed at load time. Close returns the allocation
// to its allocator.
type AllocatedBlock struct {
	lifecycle
}

var _ Block = (*AllocatedBlock)(nil)

// NewAllocated allocates size bytes from alloc and passes them to fill,
// which must initialise the whole buffer. fill must not retain the buffer.
// If allocation or fill fails the buffer is returned to alloc and no block
// is created.
func NewAllocated(size int, alloc mempool.Allocator, fill func(buf []byte) error) (*AllocatedBlock, error) {
	if alloc == nil {
		alloc = DefaultAllocator
	}

	buf, err := alloc.Get(size)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating %d bytes", size)
	}
	if fill != nil {
		if err := fill(buf); err != nil {
			alloc.Put(buf)
			return nil, err
		}
	}

	b := &AllocatedBlock{}
	b.data = buf
	b.release = func() error {
		if !alloc.Put(buf) {
			return errors.Errorf("allocator failed to release %d bytes", len(buf))
		}
		return nil
	}
	trackLeaks(b, &b.lifecycle, KindAllocated)
	return b, nil
}

// NewAllocatedCopy returns a block holding a copy of src.
func NewAllocatedCopy(src []byte, alloc mempool.Allocator) (*AllocatedBlock, error) {
	return NewAllocated(len(src), alloc, func(buf []byte) error {
		copy(buf, src)
		return nil
	})
}

// NewAllocatedFromReader returns a block holding exactly size bytes read
// from r. A short read fails with io.ErrUnexpectedEOF.
func NewAllocatedFromReader(r io.Reader, size int, alloc mempool.Allocator) (*AllocatedBlock, error) {
	return NewAllocated(size, alloc, func(buf []byte) error {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return errors.Wrapf(err, "reading %d bytes", size)
		}
		return nil
	})
}

func (b *AllocatedBlock) Kind() Kind { return KindAllocated }
