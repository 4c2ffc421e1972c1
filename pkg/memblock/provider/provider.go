// Package provider builds memory blocks for a loader: it decides between
// mapping, copying and borrowing, decompresses compressed sources and
// instruments every block it hands out.
package provider

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/memblock/pkg/compression"
	"github.com/grafana/memblock/pkg/memblock"
	"github.com/grafana/memblock/pkg/util/mempool"
)

// Provider creates instrumented blocks. It is safe for concurrent use.
type Provider struct {
	cfg     Config
	access  memblock.AccessPattern
	alloc   mempool.Allocator
	logger  log.Logger
	metrics *Metrics
}

func New(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid memblock config")
	}
	access, err := memblock.ParseAccessPattern(cfg.AccessPattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Provider{
		cfg:     cfg,
		access:  access,
		alloc:   cfg.newAllocator(),
		logger:  log.With(logger, "component", "memblock-provider"),
		metrics: NewMetrics(reg),
	}, nil
}

// FromBytes returns a block borrowing buf. buf must stay unmodified and
// alive until the block is closed.
func (p *Provider) FromBytes(buf []byte) memblock.Block {
	return p.instrument(memblock.NewBorrowed(buf), "bytes")
}

// FromReader returns a block holding the next size bytes of r.
func (p *Provider) FromReader(r io.Reader, size int) (memblock.Block, error) {
	b, err := memblock.NewAllocatedFromReader(r, size, p.alloc)
	if err != nil {
		p.metrics.openFailures.WithLabelValues(memblock.KindAllocated.String()).Inc()
		return nil, err
	}
	return p.instrument(b, "reader"), nil
}

// FromFile returns a block over length bytes of f starting at offset.
// Regions of at least MemoryMapThreshold bytes are mapped unless
// PrefetchFiles is set; smaller ones are read into memory. f may be closed
// once FromFile returns.
func (p *Provider) FromFile(f *os.File, offset int64, length int) (memblock.Block, error) {
	if f == nil {
		return nil, errors.New("reading a nil file")
	}
	if !p.cfg.PrefetchFiles && length >= int(p.cfg.MemoryMapThreshold) {
		return p.mapFile(f, offset, length)
	}

	if offset < 0 || length < 0 {
		p.metrics.openFailures.WithLabelValues(memblock.KindAllocated.String()).Inc()
		return nil, errors.Wrapf(memblock.ErrOutOfRange, "reading %s at offset %d, length %d", f.Name(), offset, length)
	}
	b, err := memblock.NewAllocatedFromReader(io.NewSectionReader(f, offset, int64(length)), length, p.alloc)
	if err != nil {
		p.metrics.openFailures.WithLabelValues(memblock.KindAllocated.String()).Inc()
		return nil, errors.Wrapf(err, "reading %s", f.Name())
	}
	return p.instrument(b, f.Name()), nil
}

func (p *Provider) mapFile(f *os.File, offset int64, length int) (memblock.Block, error) {
	b, err := memblock.NewMapped(f, offset, length)
	if err != nil {
		p.metrics.openFailures.WithLabelValues(memblock.KindMapped.String()).Inc()
		return nil, err
	}
	if p.access != memblock.AccessNormal {
		if err := b.Advise(p.access); err != nil {
			level.Warn(p.logger).Log("msg", "failed to advise mapped block", "file", f.Name(), "pattern", p.access, "err", err)
		}
	}
	return p.instrument(b, f.Name()), nil
}

// OpenFile returns a block over the whole file at path. Files whose
// extension names a compression encoding are decompressed into memory.
func (p *Provider) OpenFile(path string) (memblock.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if enc, ok := compression.FromPath(path); ok {
		b, err := p.Decompress(enc, f, -1)
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing %s", path)
		}
		return b, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if fi.Size() > int64(maxInt) {
		return nil, errors.Errorf("%s is too large: %d bytes", path, fi.Size())
	}
	return p.FromFile(f, 0, int(fi.Size()))
}

const maxInt = int(^uint(0) >> 1)

// Decompress returns a block holding the decoded content of r. A
// non-negative size is the exact decoded size; a negative size means it is
// unknown, in which case the content is buffered before being copied into
// the block.
func (p *Provider) Decompress(enc compression.Encoding, r io.Reader, size int) (memblock.Block, error) {
	dec, err := compression.NewReader(enc, r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var b *memblock.AllocatedBlock
	if size < 0 {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(dec); err != nil {
			p.metrics.openFailures.WithLabelValues(memblock.KindAllocated.String()).Inc()
			return nil, errors.Wrapf(err, "decoding %s", enc)
		}
		b, err = memblock.NewAllocatedCopy(buf.Bytes(), p.alloc)
	} else {
		b, err = memblock.NewAllocated(size, p.alloc, func(out []byte) error {
			if _, err := io.ReadFull(dec, out); err != nil {
				if errors.Is(err, io.EOF) {
					err = io.ErrUnexpectedEOF
				}
				return errors.Wrapf(err, "decoding %d bytes of %s", size, enc)
			}
			n, err := io.ReadFull(dec, make([]byte, 1))
			switch {
			case n > 0:
				return errors.Errorf("%s content is larger than %d bytes", enc, size)
			case errors.Is(err, io.EOF):
				return nil
			default:
				return errors.Wrapf(err, "decoding %s after %d bytes", enc, size)
			}
		})
	}
	if err != nil {
		p.metrics.openFailures.WithLabelValues(memblock.KindAllocated.String()).Inc()
		return nil, err
	}

	p.metrics.decompressed.WithLabelValues(enc.String()).Add(float64(b.Size()))
	return p.instrument(b, enc.String()), nil
}

// OpenFiles opens every path with OpenFile, at most OpenConcurrency at a
// time. Blocks are returned in the order of paths. If any file fails to
// open, the blocks opened so far are closed and the first error is
// returned.
func (p *Provider) OpenFiles(ctx context.Context, paths []string) ([]memblock.Block, error) {
	blocks := make([]memblock.Block, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.OpenConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := p.OpenFile(path)
			if err != nil {
				return err
			}
			blocks[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, b := range blocks {
			if b != nil {
				_ = b.Close()
			}
		}
		return nil, err
	}
	return blocks, nil
}

func (p *Provider) instrument(b memblock.Block, source string) memblock.Block {
	kind := b.Kind().String()
	p.metrics.blocksOpened.WithLabelValues(kind).Inc()
	p.metrics.openBytes.WithLabelValues(kind).Add(float64(b.Size()))
	level.Debug(p.logger).Log("msg", "opened block", "kind", kind, "size", b.Size(), "source", source)

	return &instrumentedBlock{
		Block:  b,
		p:      p,
		source: source,
		size:   b.Size(),
	}
}

// instrumentedBlock records the release of the block it wraps.
type instrumentedBlock struct {
	memblock.Block

	p      *Provider
	source string
	size   int
	closed atomic.Bool
}

func (b *instrumentedBlock) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	kind := b.Kind().String()
	err := b.Block.Close()

	b.p.metrics.blocksClosed.WithLabelValues(kind).Inc()
	b.p.metrics.openBytes.WithLabelValues(kind).Sub(float64(b.size))
	if err != nil {
		level.Warn(b.p.logger).Log("msg", "failed to release block", "kind", kind, "source", b.source, "err", err)
	} else {
		level.Debug(b.p.logger).Log("msg", "closed block", "kind", kind, "size", b.size, "source", b.source)
	}
	return err
}
