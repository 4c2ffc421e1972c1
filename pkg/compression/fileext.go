package compression

import (
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	ExtNone   = ""
	ExtGZIP   = ".gz"
	ExtSnappy = ".sz"
	ExtLZ4    = ".lz4"
	ExtFlate  = ".zz"
	ExtZstd   = ".zst"
)

func ToFileExtension(e Encoding) (string, error) {
	switch e {
	case EncNone:
		return ExtNone, nil
	case EncGZIP:
		return ExtGZIP, nil
	case EncLZ4_64k, EncLZ4_256k, EncLZ4_1M, EncLZ4_4M:
		return ExtLZ4, nil
	case EncSnappy:
		return ExtSnappy, nil
	case EncFlate:
		return ExtFlate, nil
	case EncZstd:
		return ExtZstd, nil
	default:
		return "", errors.Wrapf(ErrUnknownEncoding, "%d, supported: %s", e, SupportedEncoding())
	}
}

// FromFileExtension maps a file extension to an encoding. ok is false for
// extensions that do not denote a compressed file.
func FromFileExtension(ext string) (e Encoding, ok bool) {
	switch ext {
	case ExtGZIP:
		return EncGZIP, true
	case ExtLZ4:
		return EncLZ4_4M, true
	case ExtSnappy:
		return EncSnappy, true
	case ExtFlate:
		return EncFlate, true
	case ExtZstd:
		return EncZstd, true
	default:
		return EncNone, false
	}
}

// FromPath returns the encoding implied by the extension of path.
func FromPath(path string) (Encoding, bool) {
	return FromFileExtension(filepath.Ext(path))
}
