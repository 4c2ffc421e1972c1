package memblock

func init() {
	// Views must start at a multiple of the allocation granularity, not the
	// page size.
	mapGranularity = 64 << 10
}
