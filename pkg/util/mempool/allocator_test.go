package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocators(t *testing.T) {
	for _, tc := range []struct {
		desc  string
		alloc Allocator
	}{
		{desc: "heap", alloc: &SimpleHeapAllocator{}},
		{desc: "byte pool", alloc: NewBytePoolAllocator(1<<10, 1<<20, 2)},
		{desc: "off heap", alloc: OffHeapAllocator{}},
		{desc: "slab", alloc: NewSlabPool(Buckets{{Count: 2, Capacity: 1 << 10}, {Count: 1, Capacity: 1 << 20}})},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			for _, size := range []int{0, 1, 1 << 10, 1 << 20} {
				buf, err := tc.alloc.Get(size)
				require.NoError(t, err)
				require.Len(t, buf, size)
				for i := range buf {
					require.Zero(t, buf[i], "buffers must be zeroed")
					buf[i] = byte(i)
				}
				require.True(t, tc.alloc.Put(buf))
			}

			_, err := tc.alloc.Get(-1)
			require.ErrorIs(t, err, ErrNegativeSize)
		})
	}
}

func TestBytePool_RecycledBuffersAreCleared(t *testing.T) {
	p := NewBytePoolAllocator(16, 1024, 2)

	for i := 0; i < 10; i++ {
		buf, err := p.Get(100)
		require.NoError(t, err)
		require.Len(t, buf, 100)
		require.Equal(t, make([]byte, 100), buf)
		for j := range buf {
			buf[j] = 0xff
		}
		p.Put(buf)
	}
}

func TestBytePool_SmallerBufferInBucket(t *testing.T) {
	p := NewBytePoolAllocator(16, 1024, 2)

	// A 100 byte buffer is pooled in the 128 byte bucket.
	require.True(t, p.Put(make([]byte, 100)))

	buf, err := p.Get(120)
	require.NoError(t, err)
	require.Len(t, buf, 120)
	require.Equal(t, make([]byte, 120), buf)
}

func TestSlabPool(t *testing.T) {
	p := NewSlabPool(Buckets{{Count: 1, Capacity: 64}, {Count: 1, Capacity: 128}})

	a, err := p.Get(10)
	require.NoError(t, err)
	require.Equal(t, 64, cap(a))

	// The 64 byte bucket is drained, but the request is not served from a
	// larger bucket.
	_, err = p.Get(10)
	require.ErrorIs(t, err, ErrExhausted)

	b, err := p.Get(100)
	require.NoError(t, err)
	require.Equal(t, 128, cap(b))

	_, err = p.Get(129)
	require.ErrorIs(t, err, ErrNoSlab)

	require.True(t, p.Put(a))
	require.True(t, p.Put(b))
	require.False(t, p.Put(make([]byte, 32)), "foreign buffers must be rejected")

	a, err = p.Get(64)
	require.NoError(t, err)
	require.Len(t, a, 64)
}

func TestSlabPool_RejectsUnknownBuffers(t *testing.T) {
	p := NewSlabPool(Buckets{{Count: 1, Capacity: 64}, {Count: 2, Capacity: 128}})

	// Same capacity as a bucket, but not allocated by the pool.
	require.False(t, p.Put(make([]byte, 64)))
	require.False(t, p.Put(make([]byte, 10, 128)))

	a, err := p.Get(64)
	require.NoError(t, err)
	require.True(t, p.Put(a))
	require.False(t, p.Put(a), "a buffer must not be put back twice")

	// Double Put on a bucket that is not full must not duplicate the buffer.
	b, err := p.Get(100)
	require.NoError(t, err)
	require.True(t, p.Put(b))
	require.False(t, p.Put(b))

	b1, err := p.Get(100)
	require.NoError(t, err)
	b2, err := p.Get(100)
	require.NoError(t, err)
	require.NotSame(t, &b1[0], &b2[0])
	_, err = p.Get(100)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestParseBuckets(t *testing.T) {
	for _, tc := range []struct {
		in      string
		expect  Buckets
		wantErr bool
	}{
		{in: "", expect: nil},
		{in: "4x1KiB", expect: Buckets{{Count: 4, Capacity: 1024}}},
		{in: "16x64KiB, 2x1MiB", expect: Buckets{{Count: 16, Capacity: 64 << 10}, {Count: 2, Capacity: 1 << 20}}},
		{in: "4", wantErr: true},
		{in: "0x1KiB", wantErr: true},
		{in: "4xfoo", wantErr: true},
		{in: "1x1MiB,1x1KiB", wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBuckets(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, got)
		})
	}
}

func TestBuckets_String(t *testing.T) {
	var b Buckets
	require.NoError(t, b.Set("16x64KiB,2x1MiB"))
	require.Equal(t, "16x64 KiB,2x1.0 MiB", b.String())
}
