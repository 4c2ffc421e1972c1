package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/grafana/memblock/pkg/util/mempool"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, cfg.Validate())
	require.Equal(t, AllocatorOffHeap, cfg.Allocator)
	require.Equal(t, uint64(16<<10), uint64(cfg.MemoryMapThreshold))
	require.Equal(t, "normal", cfg.AccessPattern)
	require.Equal(t, 4, cfg.OpenConcurrency)
	require.Equal(t, mempool.Buckets{{Count: 64, Capacity: 64 << 10}, {Count: 16, Capacity: 1 << 20}}, cfg.SlabBuckets)
}

func TestConfig_Validate(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		mutate func(*Config)
		err    string
	}{
		{
			desc:   "unknown allocator",
			mutate: func(cfg *Config) { cfg.Allocator = "arena" },
			err:    `unsupported allocator "arena"`,
		},
		{
			desc: "pool max below min",
			mutate: func(cfg *Config) {
				cfg.Allocator = AllocatorPool
				cfg.PoolMaxSize = 1
			},
			err: "PoolMinSize must be greater than 0 and not larger than PoolMaxSize",
		},
		{
			desc: "pool factor",
			mutate: func(cfg *Config) {
				cfg.Allocator = AllocatorPool
				cfg.PoolFactor = 1
			},
			err: "PoolFactor must be greater than 1",
		},
		{
			desc: "slab without buckets",
			mutate: func(cfg *Config) {
				cfg.Allocator = AllocatorSlab
				cfg.SlabBuckets = nil
			},
			err: "SlabBuckets must not be empty",
		},
		{
			desc:   "access pattern",
			mutate: func(cfg *Config) { cfg.AccessPattern = "backwards" },
			err:    `unknown access pattern "backwards"`,
		},
		{
			desc:   "concurrency",
			mutate: func(cfg *Config) { cfg.OpenConcurrency = 0 },
			err:    "OpenConcurrency must be greater than 0",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	cfg := defaultConfig()
	in := `
allocator: slab
memory_map_threshold: 1MiB
prefetch_files: true
access_pattern: sequential
open_concurrency: 16
slab_buckets: 8x4KiB,2x1MiB
`
	require.NoError(t, yaml.Unmarshal([]byte(in), &cfg))
	require.NoError(t, cfg.Validate())

	require.Equal(t, AllocatorSlab, cfg.Allocator)
	require.Equal(t, uint64(1<<20), uint64(cfg.MemoryMapThreshold))
	require.True(t, cfg.PrefetchFiles)
	require.Equal(t, "sequential", cfg.AccessPattern)
	require.Equal(t, 16, cfg.OpenConcurrency)
	require.Equal(t, mempool.Buckets{{Count: 8, Capacity: 4 << 10}, {Count: 2, Capacity: 1 << 20}}, cfg.SlabBuckets)
	// Unset fields keep their defaults.
	require.Equal(t, 2.0, cfg.PoolFactor)

	out, err := yaml.Marshal(struct {
		SlabBuckets mempool.Buckets `yaml:"slab_buckets"`
	}{cfg.SlabBuckets})
	require.NoError(t, err)

	roundTrip := defaultConfig()
	require.NoError(t, yaml.Unmarshal(out, &roundTrip))
	require.Equal(t, cfg.SlabBuckets, roundTrip.SlabBuckets)
}

func TestConfig_InvalidYAML(t *testing.T) {
	cfg := defaultConfig()
	require.Error(t, yaml.Unmarshal([]byte("slab_buckets: 4xlots"), &cfg))
}
