//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package memblock

// Advise is a no-op on platforms without madvise.
func (b *MappedBlock) Advise(AccessPattern) error {
	return nil
}
