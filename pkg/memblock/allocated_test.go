package memblock

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/grafana/memblock/pkg/util/mempool"
)

func TestAllocatedBlock_RoundTrip(t *testing.T) {
	allocators := map[string]mempool.Allocator{
		"off heap": mempool.OffHeapAllocator{},
		"heap":     &mempool.SimpleHeapAllocator{},
		"pool":     mempool.NewBytePoolAllocator(1<<10, 1<<21, 2),
		"slab":     mempool.NewSlabPool(mempool.Buckets{{Count: 1, Capacity: 1 << 12}, {Count: 1, Capacity: 1 << 20}}),
	}

	for name, alloc := range allocators {
		for _, n := range []int{0, 1, 4096, 1_000_000} {
			t.Run(fmt.Sprintf("%s/%d", name, n), func(t *testing.T) {
				data := pattern(n)

				b, err := NewAllocatedCopy(data, alloc)
				require.NoError(t, err)
				defer b.Close()

				r := b.Reader()
				got := r.Bytes(n)
				require.NoError(t, r.Err())
				require.Equal(t, 0, r.Remaining())
				require.True(t, bytes.Equal(data, got), "pattern not reproduced")
			})
		}
	}
}

func TestAllocatedBlock_FromReader(t *testing.T) {
	data := pattern(5000)

	b, err := NewAllocatedFromReader(bytes.NewReader(data), len(data), nil)
	require.NoError(t, err)
	defer b.Close()
	require.True(t, b.ContentUnchecked(0, b.Size()).Equal(data))

	_, err = NewAllocatedFromReader(bytes.NewReader(data), len(data)+1, nil)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewAllocatedFromReader(bytes.NewReader(nil), 10, nil)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestAllocatedBlock_FailedFillReturnsBuffer(t *testing.T) {
	// A single buffer makes a leaked allocation visible as exhaustion.
	alloc := mempool.NewSlabPool(mempool.Buckets{{Count: 1, Capacity: 64}})
	errFill := errors.New("decode failed")

	_, err := NewAllocated(64, alloc, func([]byte) error { return errFill })
	require.ErrorIs(t, err, errFill)

	b, err := NewAllocated(64, alloc, nil)
	require.NoError(t, err)

	_, err = NewAllocated(64, alloc, nil)
	require.ErrorIs(t, err, mempool.ErrExhausted)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	// Double Close must not have returned the buffer twice.
	b, err = NewAllocated(64, alloc, nil)
	require.NoError(t, err)
	_, err = NewAllocated(64, alloc, nil)
	require.ErrorIs(t, err, mempool.ErrExhausted)
	require.NoError(t, b.Close())
}

func TestAllocatedBlock_AllocationFailure(t *testing.T) {
	_, err := NewAllocated(-1, nil, nil)
	require.ErrorIs(t, err, mempool.ErrNegativeSize)

	_, err = NewAllocated(1<<20, mempool.NewSlabPool(nil), nil)
	require.ErrorIs(t, err, mempool.ErrNoSlab)
}
