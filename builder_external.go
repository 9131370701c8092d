package gcs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	streamerrors "github.com/tamirms/gcs/errors"
	intbits "github.com/tamirms/gcs/internal/bits"
	"github.com/tamirms/gcs/internal/bitio"
)

// ExternalBuilder builds the same filter as Builder with bounded memory.
//
// The total element count n must be known up front: each value is reduced
// modulo n*p as it is added, buffered, and spilled as a sorted,
// deduplicated chunk whenever the buffer reaches the spill threshold.
// Finish spills the tail, merges all chunks with cross-chunk deduplication
// and encodes the merged stream. For the same values and options the output
// is byte-identical to Builder's.
//
// Usage:
//
//	builder, err := gcs.NewExternalBuilder(w, p, totalValues, gcs.WithChunkPath("out.gcs.%03d.tmp"))
//	if err != nil { return err }
//	defer builder.Close()
//
//	for v := range values {
//	    if err := builder.Add(v); err != nil { return err }
//	}
//	return builder.Finish()
//
// Chunk files are removed on every exit from Finish and by Close.
type ExternalBuilder struct {
	cfg    *buildConfig
	p      uint64
	n      uint64
	np     uint64
	bw     *bitio.Writer
	output string // set by CreateExternal

	buf    []uint64
	chunks []*chunkStore
	added  uint64
	closed bool
	stats  BuildStats
}

// NewExternalBuilder creates a memory-bounded builder writing to w with
// modulus p for exactly n values. n fixes the normalization range, so Finish
// fails with ErrValueCountMismatch unless exactly n values were added; a
// build with fewer values must use Builder or declare the smaller count.
func NewExternalBuilder(w io.Writer, p, n uint64, opts ...BuildOption) (*ExternalBuilder, error) {
	b, err := newExternalBuilder(p, n, opts)
	if err != nil {
		return nil, err
	}
	b.bw = bitio.NewWriter(w)
	return b, nil
}

// newExternalBuilder validates the parameters and returns a builder without output.
func newExternalBuilder(p, n uint64, opts []BuildOption) (*ExternalBuilder, error) {
	if p == 0 {
		return nil, streamerrors.ErrInvalidModulus
	}
	if n == 0 {
		return nil, streamerrors.ErrEmptyFilter
	}
	if intbits.MulOverflows(n, p) {
		return nil, fmt.Errorf("%w: n=%d p=%d", streamerrors.ErrModulusOverflow, n, p)
	}
	cfg, err := newBuildConfig(opts)
	if err != nil {
		return nil, err
	}

	return &ExternalBuilder{
		cfg: cfg,
		p:   p,
		n:   n,
		np:  n * p,
		buf: make([]uint64, 0, min(uint64(cfg.spillThreshold), n)),
	}, nil
}

// CreateExternal creates the file at path and returns an external builder
// writing to it. Unless WithChunkPath is given, chunks are written next to
// the output as <path>.001.tmp, <path>.002.tmp and so on. Invalid parameters
// are reported before path is touched.
func CreateExternal(path string, p, n uint64, opts ...BuildOption) (*ExternalBuilder, error) {
	chunkPath := strings.ReplaceAll(path, "%", "%%") + ".%03d.tmp"
	opts = append([]BuildOption{WithChunkPath(chunkPath)}, opts...)

	b, err := newExternalBuilder(p, n, opts)
	if err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create filter file: %w", err)
	}
	b.bw = bitio.NewWriter(file)
	b.output = path
	return b, nil
}

// Add normalizes and buffers a value, spilling a chunk when the buffer is full.
func (b *ExternalBuilder) Add(v uint64) error {
	if b.closed {
		return streamerrors.ErrBuilderClosed
	}
	if b.added >= b.n {
		return fmt.Errorf("%w: declared %d", streamerrors.ErrTooManyValues, b.n)
	}

	b.buf = append(b.buf, v%b.np)
	b.added++
	if len(b.buf) >= b.cfg.spillThreshold {
		return b.spill()
	}
	return nil
}

// AddKey hashes key with HashKey and adds the result.
func (b *ExternalBuilder) AddKey(key []byte) error {
	return b.Add(HashKey(key))
}

// spill sorts and deduplicates the buffer and writes it as a new chunk.
func (b *ExternalBuilder) spill() error {
	if len(b.buf) == 0 {
		return nil
	}
	slices.Sort(b.buf)
	b.buf = slices.Compact(b.buf)

	seq := len(b.chunks) + 1
	level.Info(b.cfg.logger).Log("msg", "spilling chunk", "chunk", seq, "values", len(b.buf))

	c, err := newChunkStore(b.cfg, seq)
	if err != nil {
		return err
	}
	b.chunks = append(b.chunks, c)
	if err := c.append(b.buf); err != nil {
		return fmt.Errorf("chunk %d: %w", seq, err)
	}
	b.cfg.metrics.chunkSpilled(c.size)
	b.buf = b.buf[:0]
	return nil
}

// Finish spills the buffered tail, merges all chunks and writes the filter.
// All chunks are closed and removed before Finish returns, whether or not
// it succeeds. Exactly n values must have been added.
func (b *ExternalBuilder) Finish() (err error) {
	if b.closed {
		return streamerrors.ErrBuilderClosed
	}
	b.closed = true
	start := time.Now()
	defer func() {
		if err != nil {
			err = errors.Join(err, b.bw.Abort(), removeOutput(b.output))
		}
		err = errors.Join(err, b.removeChunks())
	}()

	if b.added != b.n {
		return fmt.Errorf("%w: expected %d, got %d", streamerrors.ErrValueCountMismatch, b.n, b.added)
	}

	if err := b.spill(); err != nil {
		return err
	}
	b.buf = nil

	sources := make([]valueSource, 0, len(b.chunks))
	for i, c := range b.chunks {
		r, err := c.produce(b.cfg.readBatch)
		if err != nil {
			return fmt.Errorf("open chunk %d: %w", i+1, err)
		}
		sources = append(sources, r)
	}

	level.Debug(b.cfg.logger).Log("msg", "merging chunks", "chunks", len(b.chunks))
	stats, err := writeFilter(b.bw, newStreamMerger(sources), b.n, b.p, b.cfg)
	if err != nil {
		return err
	}
	stats.Chunks = len(b.chunks)
	b.stats = stats
	b.cfg.metrics.finished(builderExternal, stats, start)
	return nil
}

// removeChunks cleans up every chunk, collecting all errors.
func (b *ExternalBuilder) removeChunks() error {
	var errs []error
	for _, c := range b.chunks {
		if err := c.cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	b.chunks = nil
	return errors.Join(errs...)
}

// Stats returns statistics for a successful Finish.
func (b *ExternalBuilder) Stats() BuildStats {
	return b.stats
}

// Close aborts the build and cleans up resources.
// Call this if an error occurs during Add calls.
// Safe to call after Finish.
func (b *ExternalBuilder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.buf = nil
	return errors.Join(b.removeChunks(), b.bw.Abort(), removeOutput(b.output))
}
