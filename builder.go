package gcs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/go-kit/log/level"
	streamerrors "github.com/tamirms/gcs/errors"
	intbits "github.com/tamirms/gcs/internal/bits"
	"github.com/tamirms/gcs/internal/bitio"
)

// Builder collects values in memory and writes a Golomb-coded set on Finish.
//
// The element count n is discovered at Finish from the number of values
// added; every value is reduced modulo n*p exactly once, then the set is
// sorted and deduplicated before encoding. Insertion order never affects
// the output.
//
// Usage:
//
//	builder, err := gcs.NewBuilder(w, 1<<20)
//	if err != nil { return err }
//	defer builder.Close() // Clean up on error
//
//	for _, v := range values {
//	    if err := builder.Add(v); err != nil { return err }
//	}
//	return builder.Finish()
//
// A finished builder can be re-armed with Reset for another batch.
type Builder struct {
	cfg    *buildConfig
	p      uint64
	bw     *bitio.Writer
	output string // set by Create; removed if the build fails or is aborted
	values []uint64
	closed bool
	stats  BuildStats
}

// NewBuilder creates an in-memory builder writing to w with modulus p.
// If w is an io.Closer it is closed by Finish or Close.
func NewBuilder(w io.Writer, p uint64, opts ...BuildOption) (*Builder, error) {
	b, err := newBuilder(p, opts)
	if err != nil {
		return nil, err
	}
	b.bw = bitio.NewWriter(w)
	return b, nil
}

// newBuilder validates the parameters and returns a builder without output.
func newBuilder(p uint64, opts []BuildOption) (*Builder, error) {
	if p == 0 {
		return nil, streamerrors.ErrInvalidModulus
	}
	cfg, err := newBuildConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, p: p}, nil
}

// Create creates the file at path and returns an in-memory builder writing to it.
// Invalid parameters are reported before path is touched.
func Create(path string, p uint64, opts ...BuildOption) (*Builder, error) {
	b, err := newBuilder(p, opts)
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

// Add buffers a value. Values may be added in any order and may repeat.
func (b *Builder) Add(v uint64) error {
	if b.closed {
		return streamerrors.ErrBuilderClosed
	}
	b.values = append(b.values, v)
	return nil
}

// AddKey hashes key with HashKey and adds the result.
func (b *Builder) AddKey(key []byte) error {
	return b.Add(HashKey(key))
}

// Len returns the number of values added since the builder was armed.
func (b *Builder) Len() int {
	return len(b.values)
}

// Finish normalizes, sorts and deduplicates the buffered values, writes the
// filter and closes the output. The buffer is cleared whether or not the
// write succeeds.
func (b *Builder) Finish() error {
	if b.closed {
		return streamerrors.ErrBuilderClosed
	}
	b.closed = true
	defer b.clearValues()

	start := time.Now()
	logger := b.cfg.logger
	n := uint64(len(b.values))
	if intbits.MulOverflows(n, b.p) {
		primaryErr := fmt.Errorf("%w: n=%d p=%d", streamerrors.ErrModulusOverflow, n, b.p)
		return errors.Join(primaryErr, b.bw.Abort(), removeOutput(b.output))
	}

	if n > 0 {
		np := n * b.p
		level.Debug(logger).Log("msg", "normalizing", "values", n)
		for i, v := range b.values {
			b.values[i] = v % np
		}

		level.Debug(logger).Log("msg", "sorting", "values", n)
		slices.Sort(b.values)

		level.Debug(logger).Log("msg", "removing duplicates", "values", n)
		b.values = slices.Compact(b.values)
	}

	level.Debug(logger).Log("msg", "encoding", "values", len(b.values))
	stats, err := writeFilter(b.bw, &sliceSource{vals: b.values}, n, b.p, b.cfg)
	if err != nil {
		return errors.Join(err, removeOutput(b.output))
	}
	b.stats = stats
	b.cfg.metrics.finished(builderMemory, stats, start)
	return nil
}

func (b *Builder) clearValues() {
	b.values = b.values[:0]
}

// Stats returns statistics for the last successful Finish.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Reset re-arms a finished or closed builder to collect a new batch into w.
// The modulus and options are kept.
func (b *Builder) Reset(w io.Writer) error {
	if !b.closed {
		return streamerrors.ErrBuilderNotFinished
	}
	b.bw = bitio.NewWriter(w)
	b.output = ""
	b.values = b.values[:0]
	b.stats = BuildStats{}
	b.closed = false
	return nil
}

// Close aborts the build, discarding buffered values and closing the output
// without writing a footer. Safe to call after Finish.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.values = nil
	return errors.Join(b.bw.Abort(), removeOutput(b.output))
}

// removeOutput removes a builder-owned output file. No-op for "".
func removeOutput(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
