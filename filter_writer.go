package gcs

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	streamerrors "github.com/tamirms/gcs/errors"
	"github.com/tamirms/gcs/internal/bitio"
)

// progressInterval is the number of index strides between "encoded" progress messages.
const progressInterval = 1000

// valueSource is a forward-only, single-pass sequence of values.
// next returns false when the sequence is exhausted or has failed; err
// distinguishes the two.
type valueSource interface {
	next() (uint64, bool)
	err() error
}

// sliceSource iterates an in-memory slice.
type sliceSource struct {
	vals []uint64
	pos  int
}

func (s *sliceSource) next() (uint64, bool) {
	if s.pos >= len(s.vals) {
		return 0, false
	}
	v := s.vals[s.pos]
	s.pos++
	return v, true
}

func (s *sliceSource) err() error { return nil }

// BuildStats describes a finished filter.
type BuildStats struct {
	N            uint64 // values added (the footer's n)
	Distinct     uint64 // distinct normalized values encoded
	DataBits     uint64 // bits in the data section, including pad
	IndexEntries uint64
	Chunks       int // chunks spilled (external builds only)
}

// DataBytes returns the byte length of the data section.
func (s BuildStats) DataBytes() uint64 {
	return s.DataBits / 8
}

// FileSize returns the total size of the produced filter in bytes.
func (s BuildStats) FileSize() uint64 {
	return s.DataBytes() + s.IndexEntries*indexEntrySize + footerSize
}

// writeFilter encodes an ascending, duplicate-free source and writes the
// data section, the index and the footer to bw, then closes bw.
// On error the sink is aborted and its contents must be treated as invalid.
func writeFilter(bw *bitio.Writer, src valueSource, n, p uint64, cfg *buildConfig) (BuildStats, error) {
	stats, err := encodeFilter(bw, src, n, p, cfg)
	if err != nil {
		return stats, errors.Join(err, bw.Abort())
	}
	if err := bw.Close(); err != nil {
		return stats, fmt.Errorf("close filter output: %w", err)
	}
	return stats, nil
}

func encodeFilter(bw *bitio.Writer, src valueSource, n, p uint64, cfg *buildConfig) (BuildStats, error) {
	logger := cfg.logger
	enc := newGolombEncoder(bw, p)
	stride := uint64(cfg.indexGranularity)

	var (
		index       []IndexEntry
		bitsWritten uint64
		last        uint64
		i           uint64
	)
	for ; ; i++ {
		v, ok := src.next()
		if !ok {
			break
		}
		if i > 0 && v <= last {
			return BuildStats{}, fmt.Errorf("%w: %d after %d at position %d",
				streamerrors.ErrUnsortedSource, v, last, i)
		}

		written, err := enc.encode(v - last)
		if err != nil {
			return BuildStats{}, fmt.Errorf("encode value %d: %w", i, err)
		}
		bitsWritten += written
		last = v

		if cfg.indexing() && i > 0 && i%stride == 0 {
			index = append(index, IndexEntry{Value: v, BitOffset: bitsWritten})
			if i%(progressInterval*stride) == 0 {
				level.Debug(logger).Log("msg", "encoded", "values", i)
			}
		}
	}
	if err := src.err(); err != nil {
		return BuildStats{}, fmt.Errorf("read sorted values: %w", err)
	}

	pad, err := enc.finish()
	if err != nil {
		return BuildStats{}, fmt.Errorf("flush data section: %w", err)
	}
	bitsWritten += pad

	var entryBuf [indexEntrySize]byte
	for _, e := range index {
		encodeIndexEntryTo(e, entryBuf[:])
		if _, err := bw.Write(entryBuf[:]); err != nil {
			return BuildStats{}, fmt.Errorf("write index: %w", err)
		}
	}

	ftr := footer{
		N:          n,
		P:          p,
		DataLen:    bitsWritten / 8,
		IndexCount: uint64(len(index)),
	}
	var footerBuf [footerSize]byte
	ftr.encodeTo(footerBuf[:])
	if _, err := bw.Write(footerBuf[:]); err != nil {
		return BuildStats{}, fmt.Errorf("write footer: %w", err)
	}

	stats := BuildStats{
		N:            n,
		Distinct:     i,
		DataBits:     bitsWritten,
		IndexEntries: uint64(len(index)),
	}
	logStats(logger, stats)
	return stats, nil
}

func logStats(logger log.Logger, s BuildStats) {
	level.Info(logger).Log(
		"msg", "filter written",
		"n", s.N,
		"distinct", s.Distinct,
		"data_bytes", s.DataBytes(),
		"index_entries", s.IndexEntries,
	)
}
