//go:build linux || darwin || freebsd || netbsd || openbsd

package memblock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Advise tells the kernel how the block is going to be read. It must not be
// called after Close.
func (b *MappedBlock) Advise(p AccessPattern) error {
	if len(b.mapping) == 0 {
		return nil
	}

	var advice int
	switch p {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	default:
		advice = unix.MADV_NORMAL
	}
	return errors.Wrapf(unix.Madvise(b.mapping, advice), "madvise %s", p)
}
