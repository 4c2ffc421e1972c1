package provider

import (
	"errors"
	"flag"
	"fmt"

	"github.com/grafana/dskit/flagext"

	"github.com/grafana/memblock/pkg/memblock"
	"github.com/grafana/memblock/pkg/util/mempool"
)

const (
	AllocatorOffHeap = "offheap"
	AllocatorHeap    = "heap"
	AllocatorPool    = "pool"
	AllocatorSlab    = "slab"
)

var supportedAllocators = []string{AllocatorOffHeap, AllocatorHeap, AllocatorPool, AllocatorSlab}

// Config configures how a Provider backs the blocks it creates.
type Config struct {
	// Allocator selects the allocator backing blocks that hold a private
	// copy of their bytes.
	Allocator string `yaml:"allocator"`

	// MemoryMapThreshold is the size from which file regions are memory
	// mapped instead of being read into an allocated block.
	MemoryMapThreshold flagext.Bytes `yaml:"memory_map_threshold"`

	// PrefetchFiles reads every file region into an allocated block,
	// regardless of MemoryMapThreshold.
	PrefetchFiles bool `yaml:"prefetch_files"`

	// AccessPattern is passed as an madvise hint for mapped blocks.
	AccessPattern string `yaml:"access_pattern"`

	// OpenConcurrency bounds the number of files OpenFiles opens at once.
	OpenConcurrency int `yaml:"open_concurrency"`

	PoolMinSize flagext.Bytes `yaml:"pool_min_size"`
	PoolMaxSize flagext.Bytes `yaml:"pool_max_size"`
	PoolFactor  float64       `yaml:"pool_factor"`

	SlabBuckets mempool.Buckets `yaml:"slab_buckets"`
}

// RegisterFlagsWithPrefix registers flags with the given prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	_ = cfg.MemoryMapThreshold.Set("16KiB")
	_ = cfg.PoolMinSize.Set("4KiB")
	_ = cfg.PoolMaxSize.Set("64MiB")
	_ = cfg.SlabBuckets.Set("64x64KiB,16x1MiB")

	f.StringVar(&cfg.Allocator, prefix+"allocator", AllocatorOffHeap, fmt.Sprintf("Allocator backing blocks that own their bytes. Supported: %v.", supportedAllocators))
	f.Var(&cfg.MemoryMapThreshold, prefix+"memory-map-threshold", "File regions of at least this size are memory mapped; smaller regions are read into memory.")
	f.BoolVar(&cfg.PrefetchFiles, prefix+"prefetch-files", false, "Read whole file regions into memory instead of mapping them.")
	f.StringVar(&cfg.AccessPattern, prefix+"access-pattern", memblock.AccessNormal.String(), "Access pattern hint for mapped blocks: normal, sequential, random or willneed.")
	f.IntVar(&cfg.OpenConcurrency, prefix+"open-concurrency", 4, "Maximum number of files opened concurrently.")
	f.Var(&cfg.PoolMinSize, prefix+"pool-min-size", "Smallest bucket of the pool allocator.")
	f.Var(&cfg.PoolMaxSize, prefix+"pool-max-size", "Largest bucket of the pool allocator.")
	f.Float64Var(&cfg.PoolFactor, prefix+"pool-factor", 2, "Growth factor between buckets of the pool allocator.")
	f.Var(&cfg.SlabBuckets, prefix+"slab-buckets", "Buckets of the slab allocator as <count>x<size> pairs, in increasing size.")
}

// RegisterFlags registers flags.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("memblock.", f)
}

// Validate validates the Config.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Allocator {
	case AllocatorOffHeap, AllocatorHeap:
	case AllocatorPool:
		if cfg.PoolMinSize <= 0 || cfg.PoolMaxSize < cfg.PoolMinSize {
			errs = append(errs, errors.New("PoolMinSize must be greater than 0 and not larger than PoolMaxSize"))
		}
		if cfg.PoolFactor <= 1 {
			errs = append(errs, errors.New("PoolFactor must be greater than 1"))
		}
	case AllocatorSlab:
		if len(cfg.SlabBuckets) == 0 {
			errs = append(errs, errors.New("SlabBuckets must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported allocator %q, supported: %v", cfg.Allocator, supportedAllocators))
	}

	if _, err := memblock.ParseAccessPattern(cfg.AccessPattern); err != nil {
		errs = append(errs, err)
	}

	if cfg.OpenConcurrency <= 0 {
		errs = append(errs, errors.New("OpenConcurrency must be greater than 0"))
	}

	return errors.Join(errs...)
}

func (cfg *Config) newAllocator() mempool.Allocator {
	switch cfg.Allocator {
	case AllocatorHeap:
		return &mempool.SimpleHeapAllocator{}
	case AllocatorPool:
		return mempool.NewBytePoolAllocator(int(cfg.PoolMinSize), int(cfg.PoolMaxSize), cfg.PoolFactor)
	case AllocatorSlab:
		return mempool.NewSlabPool(cfg.SlabBuckets)
	default:
		return mempool.OffHeapAllocator{}
	}
}
