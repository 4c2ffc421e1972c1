package mempool

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var (
	// ErrNoSlab is returned when a request is larger than the largest bucket.
	ErrNoSlab = errors.New("no slab large enough for request")
	// ErrExhausted is returned when every buffer of a fitting bucket is in use.
	ErrExhausted = errors.New("slab exhausted")
)

// Bucket describes a set of Count buffers of Capacity bytes each.
type Bucket struct {
	Count    int
	Capacity int
}

// Buckets is a flag.Value/YAML-friendly list of buckets, written as
// "count x capacity" pairs, e.g. "16x64KB,4x1MB".
type Buckets []Bucket

func (b Buckets) String() string {
	parts := make([]string, 0, len(b))
	for _, bkt := range b {
		parts = append(parts, fmt.Sprintf("%dx%s", bkt.Count, humanize.IBytes(uint64(bkt.Capacity))))
	}
	return strings.Join(parts, ",")
}

func (b *Buckets) Set(s string) error {
	buckets, err := ParseBuckets(s)
	if err != nil {
		return err
	}
	*b = buckets
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Buckets) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return b.Set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (b Buckets) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// ParseBuckets parses a comma separated list of "count x capacity" pairs.
// Buckets must be listed in increasing order of capacity.
func ParseBuckets(s string) (Buckets, error) {
	var buckets Buckets
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		count, capacity, ok := strings.Cut(part, "x")
		if !ok {
			return nil, errors.Errorf("invalid bucket %q, expected <count>x<capacity>", part)
		}
		n, err := strconv.Atoi(count)
		if err != nil || n <= 0 {
			return nil, errors.Errorf("invalid bucket count %q", count)
		}
		size, err := humanize.ParseBytes(capacity)
		if err != nil || size == 0 {
			return nil, errors.Errorf("invalid bucket capacity %q", capacity)
		}
		if l := len(buckets); l > 0 && buckets[l-1].Capacity >= int(size) {
			return nil, errors.Errorf("bucket %q must be larger than the previous one", part)
		}
		buckets = append(buckets, Bucket{Count: n, Capacity: int(size)})
	}
	return buckets, nil
}

type slab struct {
	buffer      chan unsafe.Pointer
	size, count int

	mtx sync.Mutex
	out map[unsafe.Pointer]struct{} // buffers handed out by get
}

func newSlab(bufferSize, bufferCount int) *slab {
	s := &slab{
		size:   bufferSize,
		count:  bufferCount,
		buffer: make(chan unsafe.Pointer, bufferCount),
		out:    make(map[unsafe.Pointer]struct{}, bufferCount),
	}
	for i := 0; i < s.count; i++ {
		buf := make([]byte, 0, s.size)
		s.buffer <- unsafe.Pointer(unsafe.SliceData(buf))
	}
	return s
}

func (s *slab) get(size int) ([]byte, error) {
	var ptr unsafe.Pointer
	select {
	case ptr = <-s.buffer:
	default:
		return nil, errors.Wrapf(ErrExhausted, "%d buffers of %d bytes in use", s.count, s.size)
	}

	s.mtx.Lock()
	s.out[ptr] = struct{}{}
	s.mtx.Unlock()

	buf := unsafe.Slice((*byte)(ptr), s.size)
	clear(buf)
	return buf[:size], nil
}

// put returns buf to the slab. It reports false, and never blocks, for a
// buffer that is not currently handed out by this slab.
func (s *slab) put(buf []byte) bool {
	ptr := unsafe.Pointer(unsafe.SliceData(buf))

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.out[ptr]; !ok {
		return false
	}

	select {
	case s.buffer <- ptr:
		delete(s.out, ptr)
		return true
	default:
		return false
	}
}

// SlabPool is a bounded Allocator made of pre-allocated buffers grouped in
// buckets of increasing capacity. Requests are served from the smallest
// bucket that fits; Get never blocks.
type SlabPool struct {
	slabs []*slab
}

// NewSlabPool allocates every buffer of the given buckets up front.
func NewSlabPool(buckets Buckets) *SlabPool {
	p := &SlabPool{
		slabs: make([]*slab, 0, len(buckets)),
	}
	for _, b := range buckets {
		p.slabs = append(p.slabs, newSlab(b.Capacity, b.Count))
	}
	return p
}

// Get implements Allocator
func (p *SlabPool) Get(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrNegativeSize
	}
	for i := 0; i < len(p.slabs); i++ {
		if p.slabs[i].size < size {
			continue
		}
		return p.slabs[i].get(size)
	}
	return nil, errors.Wrapf(ErrNoSlab, "size %d", size)
}

// Put implements Allocator. Buffers that are not currently handed out by
// this pool, including ones already put back, are rejected.
func (p *SlabPool) Put(buffer []byte) bool {
	size := cap(buffer)
	for i := 0; i < len(p.slabs); i++ {
		if p.slabs[i].size != size {
			continue
		}
		return p.slabs[i].put(buffer)
	}
	return false
}
