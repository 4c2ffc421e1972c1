package memblock

import (
	"bytes"
	"io"

	"github.com/grafana/memblock/pkg/memblock/blob"
)

// Content holds an immutable sequence of bytes extracted from a Block.
//
// Content never exposes its backing array: it may share memory with an
// immutable buffer a BorrowedBlock was built on, and that sharing must not
// be observable. It stays valid after the block it came from is closed.
type Content struct {
	b []byte
}

// Len returns the content length.
func (c Content) Len() int {
	return len(c.b)
}

// At returns the byte at index i.
func (c Content) At(i int) byte {
	return c.b[i]
}

// ByteSlice returns a copy of the content.
func (c Content) ByteSlice() []byte {
	return cloneBytes(c.b)
}

func (c Content) String() string {
	return string(c.b)
}

// Equal reports whether the content equals b.
func (c Content) Equal(b []byte) bool {
	return bytes.Equal(c.b, b)
}

// Reader returns a cursor over the content. Slices returned by the
// Reader's Bytes method alias the content and must not be modified.
func (c Content) Reader() blob.Reader {
	return blob.NewReader(c.b)
}

// WriteTo implements io.WriterTo.
func (c Content) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.b)
	return int64(n), err
}

func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
