// Package blob provides a cursor for decoding primitive values from a
// contiguous byte range, typically the range of a memblock.Block.
//
// Reads follow the sticky-error convention: the first read that would run
// past the end of the range records an error, returns a zero value, and
// turns every later read into a no-op returning zero values. Callers decode
// a whole structure and check [Reader.Err] once.
package blob

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	ErrOutOfBounds              = errors.New("read out of bounds")
	ErrInvalidCompressedInteger = errors.New("invalid compressed integer")
	ErrInvalidVarint            = errors.New("invalid varint")
	ErrInvalidUTF8              = errors.New("invalid UTF-8 sequence")
	ErrUnterminatedUTF8         = errors.New("missing string terminator")
	ErrInvalidAlignment         = errors.New("alignment must be a power of two")
)

// Reader is a cursor over a byte range. The zero value reads an empty range.
//
// A Reader aliases the range it was created from and does not keep its
// source alive: a Reader obtained from a memblock.Block must not be used
// after the block is closed.
type Reader struct {
	b   []byte
	pos int
	err error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) Reader {
	return Reader{b: b}
}

// Len returns the size of the underlying range.
func (r *Reader) Len() int { return len(r.b) }

// Offset returns the cursor position.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns the number of bytes after the cursor.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Reset moves the cursor back to the start and clears the error.
func (r *Reader) Reset() {
	r.pos = 0
	r.err = nil
}

// Seek moves the cursor to an absolute offset. Seeking to Len() is allowed.
func (r *Reader) Seek(offset int) {
	if r.err != nil {
		return
	}
	if offset < 0 || offset > len(r.b) {
		r.err = errors.Wrapf(ErrOutOfBounds, "seek to %d, length %d", offset, len(r.b))
		return
	}
	r.pos = offset
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int) {
	if r.err != nil {
		return
	}
	if n <= 0 || n&(n-1) != 0 {
		r.err = errors.Wrapf(ErrInvalidAlignment, "align %d", n)
		return
	}
	r.Skip((n - r.pos%n) % n)
}

// take returns the next n bytes and advances the cursor, or records an
// error and returns nil.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.b)-r.pos {
		r.err = errors.Wrapf(ErrOutOfBounds, "read %d bytes at offset %d, length %d", n, r.pos, len(r.b))
		return nil
	}
	x := r.b[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return x
}

func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }
func (r *Reader) Int32() int32 { return int32(r.Uint32()) }
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// Bytes returns the next n bytes without copying. The result aliases the
// source range and shares its lifetime.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// CopyBytes returns a copy of the next n bytes.
func (r *Reader) CopyBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// UTF8 decodes the next n bytes as a UTF-8 string.
func (r *Reader) UTF8(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.err = errors.Wrapf(ErrInvalidUTF8, "at offset %d", r.pos-n)
		return ""
	}
	return string(b)
}

// NullTerminatedUTF8 decodes a string up to the next zero byte and skips
// the terminator.
func (r *Reader) NullTerminatedUTF8() string {
	if r.err != nil {
		return ""
	}
	for i := r.pos; i < len(r.b); i++ {
		if r.b[i] == 0 {
			s := r.UTF8(i - r.pos)
			r.Skip(1)
			return s
		}
	}
	r.err = errors.Wrapf(ErrUnterminatedUTF8, "string at offset %d", r.pos)
	return ""
}

// Uvarint decodes a base-128 varint.
func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	x, n := binary.Uvarint(r.b[r.pos:])
	if n < 1 {
		if n == 0 {
			r.err = errors.Wrapf(ErrOutOfBounds, "varint at offset %d", r.pos)
		} else {
			r.err = errors.Wrapf(ErrInvalidVarint, "at offset %d", r.pos)
		}
		return 0
	}
	r.pos += n
	return x
}

// CompressedUint decodes an unsigned integer in the compressed encoding of
// ECMA-335 II.23.2: one, two or four big-endian bytes selected by the high
// bits of the first byte.
func (r *Reader) CompressedUint() uint32 {
	v, _ := r.compressedUint()
	return v
}

func (r *Reader) compressedUint() (uint32, int) {
	if r.err != nil {
		return 0, 0
	}
	if r.pos >= len(r.b) {
		r.err = errors.Wrapf(ErrOutOfBounds, "compressed integer at offset %d", r.pos)
		return 0, 0
	}

	first := r.b[r.pos]
	switch {
	case first&0x80 == 0:
		r.pos++
		return uint32(first), 1
	case first&0xc0 == 0x80:
		b := r.take(2)
		if b == nil {
			return 0, 0
		}
		return uint32(binary.BigEndian.Uint16(b)) & 0x3fff, 2
	case first&0xe0 == 0xc0:
		b := r.take(4)
		if b == nil {
			return 0, 0
		}
		return binary.BigEndian.Uint32(b) & 0x1fffffff, 4
	default:
		r.err = errors.Wrapf(ErrInvalidCompressedInteger, "leading byte %#x at offset %d", first, r.pos)
		return 0, 0
	}
}

// CompressedInt decodes a signed integer in the compressed encoding of
// ECMA-335 II.23.2. The sign bit is stored in the least significant bit.
func (r *Reader) CompressedInt() int32 {
	u, size := r.compressedUint()
	if size == 0 {
		return 0
	}

	v := int32(u >> 1)
	if u&1 == 0 {
		return v
	}
	switch size {
	case 1:
		return v | -0x40
	case 2:
		return v | -0x2000
	default:
		return v | -0x10000000
	}
}
