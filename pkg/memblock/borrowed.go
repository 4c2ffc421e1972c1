package memblock

import "github.com/pkg/errors"

// BorrowedBlock is a zero-copy view of a byte slice owned elsewhere.
//
// The slice must not be modified, and its owner must keep it alive, for as
// long as the block or anything obtained from it is in use. Close only
// marks the block released.
type BorrowedBlock struct {
	lifecycle
}

var _ Block = (*BorrowedBlock)(nil)

// NewBorrowed returns a block over the whole of buf.
func NewBorrowed(buf []byte) *BorrowedBlock {
	b := &BorrowedBlock{}
	b.data = buf[:len(buf):len(buf)]
	return b
}

// NewBorrowedRange returns a block over buf[start:start+length].
func NewBorrowedRange(buf []byte, start, length int) (*BorrowedBlock, error) {
	if start < 0 || length < 0 || start > len(buf)-length {
		return nil, errors.Wrapf(ErrOutOfRange, "[%d, %d) of %d byte buffer", start, start+length, len(buf))
	}
	return NewBorrowed(buf[start : start+length]), nil
}

func (b *BorrowedBlock) Kind() Kind { return KindBorrowed }

// ContentUnchecked implements Block. Requesting the whole block shares the
// borrowed buffer instead of copying it.
func (b *BorrowedBlock) ContentUnchecked(start, length int) Content {
	if start == 0 && length == len(b.data) {
		return Content{b: b.data}
	}
	return b.lifecycle.ContentUnchecked(start, length)
}
