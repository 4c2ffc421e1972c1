package memblock

import (
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// mapGranularity is the alignment the operating system requires for the
// file offset of a mapping.
var mapGranularity = int64(os.Getpagesize())

// AccessPattern is a hint about how a mapped block will be read.
type AccessPattern int

const (
	AccessNormal AccessPattern = iota
	AccessSequential
	AccessRandom
	AccessWillNeed
)

func (p AccessPattern) String() string {
	switch p {
	case AccessNormal:
		return "normal"
	case AccessSequential:
		return "sequential"
	case AccessRandom:
		return "random"
	case AccessWillNeed:
		return "willneed"
	default:
		return "unknown"
	}
}

// ParseAccessPattern parses the String form of an AccessPattern.
func ParseAccessPattern(s string) (AccessPattern, error) {
	for _, p := range []AccessPattern{AccessNormal, AccessSequential, AccessRandom, AccessWillNeed} {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown access pattern %q", s)
}

// MappedBlock is a read-only memory mapping of a file region. Close unmaps
// it.
type MappedBlock struct {
	lifecycle

	// mapping is the whole mapped region, which starts at an aligned file
	// offset at or before the first byte of data.
	mapping mmap.MMap
}

var _ Block = (*MappedBlock)(nil)

// NewMapped maps length bytes of f starting at offset. The region must lie
// within the file. f may be closed once NewMapped returns; the mapping
// stays valid until the block is closed.
func NewMapped(f *os.File, offset int64, length int) (*MappedBlock, error) {
	if f == nil {
		return nil, errors.New("mapping a nil file")
	}
	if offset < 0 || length < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "mapping %s at offset %d, length %d", f.Name(), offset, length)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", f.Name())
	}
	if offset > fi.Size()-int64(length) {
		return nil, errors.Wrapf(ErrOutOfRange, "mapping [%d, %d) of %s, file size %d", offset, offset+int64(length), f.Name(), fi.Size())
	}

	b := &MappedBlock{}
	if length == 0 {
		return b, nil
	}

	aligned := offset - offset%mapGranularity
	delta := int(offset - aligned)

	m, err := mmap.MapRegion(f, delta+length, mmap.RDONLY, 0, aligned)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping [%d, %d) of %s", offset, offset+int64(length), f.Name())
	}

	b.mapping = m
	b.data = m[delta : delta+length : delta+length]
	b.release = func() error {
		if err := m.Unmap(); err != nil {
			return errors.Wrap(err, "unmapping block")
		}
		return nil
	}
	trackLeaks(b, &b.lifecycle, KindMapped)
	return b, nil
}

func (b *MappedBlock) Kind() Kind { return KindMapped }

// Close implements Block.
func (b *MappedBlock) Close() error {
	err := b.lifecycle.Close()
	b.mapping = nil
	return err
}
