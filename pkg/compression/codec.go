package compression

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// ErrUnknownEncoding is returned for encodings this package cannot handle.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Encoding identifies how the bytes of a region were compressed before they
// are materialised into a memory block.
type Encoding byte

// The different available encodings.
// Make sure to preserve the order, as the numeric values are serialized!
const (
	EncNone Encoding = iota
	EncGZIP
	EncLZ4_64k
	EncSnappy
	EncLZ4_256k
	EncLZ4_1M
	EncLZ4_4M
	EncFlate
	EncZstd
)

var supportedEncoding = []Encoding{
	EncNone,
	EncGZIP,
	EncLZ4_64k,
	EncSnappy,
	EncLZ4_256k,
	EncLZ4_1M,
	EncLZ4_4M,
	EncFlate,
	EncZstd,
}

func (e Encoding) String() string {
	switch e {
	case EncGZIP:
		return "gzip"
	case EncNone:
		return "none"
	case EncLZ4_64k:
		return "lz4-64k"
	case EncLZ4_256k:
		return "lz4-256k"
	case EncLZ4_1M:
		return "lz4-1M"
	case EncLZ4_4M:
		return "lz4"
	case EncSnappy:
		return "snappy"
	case EncFlate:
		return "flate"
	case EncZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseEncoding parses an encoding from its string representation.
func ParseEncoding(enc string) (Encoding, error) {
	for _, e := range supportedEncoding {
		if strings.EqualFold(e.String(), enc) {
			return e, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownEncoding, "%q, supported: %s", enc, SupportedEncoding())
}

// SupportedEncoding returns the list of supported Encoding.
func SupportedEncoding() string {
	var sb strings.Builder
	for i := range supportedEncoding {
		sb.WriteString(supportedEncoding[i].String())
		if i != len(supportedEncoding)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}

func (e Encoding) lz4BlockSize() lz4.BlockSize {
	switch e {
	case EncLZ4_64k:
		return lz4.Block64Kb
	case EncLZ4_256k:
		return lz4.Block256Kb
	case EncLZ4_1M:
		return lz4.Block1Mb
	default:
		return lz4.Block4Mb
	}
}

// NewReader returns a reader decompressing r with the given encoding. The
// returned ReadCloser must be closed to release decoder resources; closing
// it does not close r.
func NewReader(e Encoding, r io.Reader) (io.ReadCloser, error) {
	switch e {
	case EncNone:
		return io.NopCloser(r), nil
	case EncGZIP:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "creating gzip reader")
		}
		return gr, nil
	case EncLZ4_64k, EncLZ4_256k, EncLZ4_1M, EncLZ4_4M:
		return io.NopCloser(lz4.NewReader(r)), nil
	case EncSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case EncFlate:
		return flate.NewReader(r), nil
	case EncZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd reader")
		}
		return zstdReadCloser{zr}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownEncoding, "%d", e)
	}
}

// NewWriter returns a writer compressing into w with the given encoding.
// The writer must be closed to flush the compressed stream.
func NewWriter(e Encoding, w io.Writer) (io.WriteCloser, error) {
	switch e {
	case EncNone:
		return nopWriteCloser{w}, nil
	case EncGZIP:
		return gzip.NewWriter(w), nil
	case EncLZ4_64k, EncLZ4_256k, EncLZ4_1M, EncLZ4_4M:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.BlockSizeOption(e.lz4BlockSize())); err != nil {
			return nil, errors.Wrap(err, "configuring lz4 writer")
		}
		return lw, nil
	case EncSnappy:
		return snappy.NewBufferedWriter(w), nil
	case EncFlate:
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, errors.Wrap(err, "creating flate writer")
		}
		return fw, nil
	case EncZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd writer")
		}
		return zw, nil
	default:
		return nil, errors.Wrapf(ErrUnknownEncoding, "%d", e)
	}
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
