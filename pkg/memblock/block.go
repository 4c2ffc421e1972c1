// Package memblock provides lifetime-managed, read-only views over
// contiguous regions of binary data.
//
// A [Block] exposes the start address and size of its region, a
// [blob.Reader] over it, and bounded-copy extraction. The storage behind a
// block is one of:
//
//   - [AllocatedBlock]: memory obtained from a [mempool.Allocator], by
//     default outside the Go heap, and owned by the block.
//   - [BorrowedBlock]: a zero-copy view of a byte slice owned elsewhere.
//   - [MappedBlock]: a read-only mapping of a file region owned by the block.
//
// Every block must be closed exactly once by its owner, normally with a
// defer right after construction. Close is idempotent. The hot-path
// accessors perform no liveness or bounds checks: using a block or any
// pointer, slice or Reader obtained from it after Close is undefined
// behaviour, as is an out-of-range ContentUnchecked. A single block must
// not be closed concurrently with any other use of it; distinct blocks are
// independent.
package memblock

import (
	"io"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/grafana/memblock/pkg/memblock/blob"
)

// ErrOutOfRange is returned by the checked accessors and by constructors
// given a range that does not fit the underlying storage.
var ErrOutOfRange = errors.New("range out of bounds")

// Kind identifies the storage strategy behind a Block.
type Kind int

const (
	KindAllocated Kind = iota
	KindBorrowed
	KindMapped
)

func (k Kind) String() string {
	switch k {
	case KindAllocated:
		return "allocated"
	case KindBorrowed:
		return "borrowed"
	case KindMapped:
		return "mapped"
	default:
		return "unknown"
	}
}

// Block is a read-only view over a contiguous byte range.
type Block interface {
	// UnsafePointer returns the address of the first byte of the block. The
	// address is valid for Size bytes until Close is called and must not be
	// dereferenced afterwards. It may be nil for an empty block.
	UnsafePointer() unsafe.Pointer

	// Size returns the number of bytes in the block.
	Size() int

	// Kind reports the storage strategy behind the block.
	Kind() Kind

	// Reader returns a cursor over the whole block. The Reader must not be
	// used after Close.
	Reader() blob.Reader

	// ContentUnchecked returns the length bytes starting at start as an
	// immutable value that stays valid after Close. The range is not
	// checked: callers must guarantee start+length <= Size().
	ContentUnchecked(start, length int) Content

	// Close releases the block. Calls after the first are no-ops.
	io.Closer
}

// UnsafeBytes returns the block's range as a slice. The slice aliases the
// block's storage and is subject to the same rules as UnsafePointer; it
// must never be written to.
func UnsafeBytes(b Block) []byte {
	if b.Size() == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.UnsafePointer()), b.Size())
}

// CheckedContent is the bounds-checked counterpart of
// Block.ContentUnchecked. It still must not be called after Close.
func CheckedContent(b Block, start, length int) (Content, error) {
	if start < 0 || length < 0 || start > b.Size()-length {
		return Content{}, errors.Wrapf(ErrOutOfRange, "[%d, %d) of %d bytes", start, start+length, b.Size())
	}
	return b.ContentUnchecked(start, length), nil
}

// lifecycle implements the backend-agnostic part of Block. Variants embed
// it, set data and release at construction, and may override
// ContentUnchecked.
type lifecycle struct {
	data []byte

	// release frees the variant's storage. It is run at most once, by the
	// first Close or by the leak backstop, and must not reference the
	// block itself.
	release func() error

	closed  atomic.Bool
	cleanup runtime.Cleanup
	tracked bool
}

func (l *lifecycle) UnsafePointer() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(l.data))
}

func (l *lifecycle) Size() int {
	return len(l.data)
}

func (l *lifecycle) Reader() blob.Reader {
	return blob.NewReader(l.data)
}

func (l *lifecycle) ContentUnchecked(start, length int) Content {
	c := copyUnchecked(l.UnsafePointer(), start, length)
	runtime.KeepAlive(l)
	return c
}

// Close marks the block released and runs the variant's release routine.
func (l *lifecycle) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if l.tracked {
		l.cleanup.Stop()
	}

	var err error
	if l.release != nil {
		err = l.release()
		l.release = nil
	}
	l.data = nil
	return err
}

// copyUnchecked copies length bytes at base+start without bounds checks.
func copyUnchecked(base unsafe.Pointer, start, length int) Content {
	if length == 0 {
		return Content{}
	}
	dst := make([]byte, length)
	copy(dst, unsafe.Slice((*byte)(unsafe.Add(base, start)), length))
	return Content{b: dst}
}
