package memblock

import (
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/grafana/memblock/pkg/util/mempool"
)

func TestLeakedBlockIsReleased(t *testing.T) {
	alloc := mempool.NewSlabPool(mempool.Buckets{{Count: 1, Capacity: 4096}})
	before := testutil.ToFloat64(leakedBlocks.WithLabelValues(KindAllocated.String()))

	func() {
		_, err := NewAllocated(4096, alloc, nil)
		require.NoError(t, err)
	}()

	// The only buffer comes back to the pool once the leaked block is
	// collected.
	require.Eventually(t, func() bool {
		runtime.GC()
		buf, err := alloc.Get(4096)
		if err != nil {
			return false
		}
		alloc.Put(buf)
		return true
	}, 5*time.Second, 10*time.Millisecond)

	require.GreaterOrEqual(t, testutil.ToFloat64(leakedBlocks.WithLabelValues(KindAllocated.String())), before+1)
}

func TestClosedBlockIsNotReleasedAgain(t *testing.T) {
	alloc := mempool.NewSlabPool(mempool.Buckets{{Count: 1, Capacity: 4096}})
	before := testutil.ToFloat64(leakedBlocks.WithLabelValues(KindAllocated.String()))

	func() {
		b, err := NewAllocated(4096, alloc, nil)
		require.NoError(t, err)
		require.NoError(t, b.Close())
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	require.Equal(t, before, testutil.ToFloat64(leakedBlocks.WithLabelValues(KindAllocated.String())))

	buf, err := alloc.Get(4096)
	require.NoError(t, err)
	alloc.Put(buf)
}
