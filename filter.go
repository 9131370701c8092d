package gcs

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	streamerrors "github.com/tamirms/gcs/errors"
	intbits "github.com/tamirms/gcs/internal/bits"
)

// Filter is a read-only view of a produced filter's layout: its footer, its
// index and the bounds of its data section. It does not answer membership
// queries.
//
// Close is NOT safe to call concurrently with other methods.
type Filter struct {
	// Memory map (no file handle needed after mmap)
	mmap mmap.MMap
	data []byte

	footer *footer
	index  []IndexEntry

	closed atomic.Bool
}

// Stats holds filter statistics.
type Stats struct {
	N              uint64
	P              uint64
	RemainderBits  uint
	DataBytes      uint64
	IndexEntries   uint64
	FileSize       int64
	BitsPerElement float64
}

// Open opens a filter file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filter file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a filter by memory-mapping the given file.
// The caller is responsible for closing f. Per POSIX mmap(2), f may be
// closed immediately after OpenFile returns.
func OpenFile(f *os.File) (*Filter, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat filter file: %w", err)
	}
	if stat.Size() < int64(footerSize) {
		return nil, streamerrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap filter file: %w", err)
	}

	flt := &Filter{
		mmap: mm,
		data: []byte(mm),
	}
	if err := flt.initFromData(); err != nil {
		return nil, errors.Join(err, flt.Close())
	}
	return flt, nil
}

// OpenBytes creates a Filter from an in-memory byte slice.
// No file is opened or memory-mapped; Close is a no-op.
// The caller must ensure data is not modified while the Filter is in use.
func OpenBytes(data []byte) (*Filter, error) {
	if len(data) < footerSize {
		return nil, streamerrors.ErrTruncatedFile
	}
	flt := &Filter{data: data}
	if err := flt.initFromData(); err != nil {
		return nil, err
	}
	return flt, nil
}

// initFromData parses the footer and index from the end of flt.data and
// checks that the regions tile the file exactly.
func (flt *Filter) initFromData() error {
	fileSize := uint64(len(flt.data))

	ftr, err := decodeFooter(flt.data[fileSize-footerSize:])
	if err != nil {
		return err
	}

	// [data][index][footer] must account for every byte.
	if ftr.IndexCount > (fileSize-footerSize)/indexEntrySize {
		return streamerrors.ErrTruncatedFile
	}
	indexSize := ftr.IndexCount * indexEntrySize
	if ftr.DataLen != fileSize-footerSize-indexSize {
		return fmt.Errorf("%w: data %d + index %d + footer %d != file size %d",
			streamerrors.ErrCorruptedFilter, ftr.DataLen, indexSize, footerSize, fileSize)
	}
	if ftr.IndexCount > 0 && ftr.N == 0 {
		return streamerrors.ErrCorruptedFilter
	}

	if flt.mmap != nil {
		adviseWillNeed(flt.data, int(ftr.DataLen))
	}
	indexRegion := flt.data[ftr.DataLen : ftr.DataLen+indexSize]

	index := make([]IndexEntry, ftr.IndexCount)
	dataBits := ftr.DataLen * 8
	for i := range index {
		e := decodeIndexEntry(indexRegion[i*indexEntrySize:])
		if i > 0 && (e.Value <= index[i-1].Value || e.BitOffset <= index[i-1].BitOffset) {
			return fmt.Errorf("%w: index entry %d out of order", streamerrors.ErrCorruptedFilter, i)
		}
		if e.BitOffset > dataBits {
			return fmt.Errorf("%w: index entry %d points past data section", streamerrors.ErrCorruptedFilter, i)
		}
		index[i] = e
	}

	flt.footer = ftr
	flt.index = index
	return nil
}

// N returns the element count recorded in the footer.
func (flt *Filter) N() uint64 { return flt.footer.N }

// P returns the Golomb-Rice modulus.
func (flt *Filter) P() uint64 { return flt.footer.P }

// RemainderBits returns ceil(log2(P)), the fixed width of each remainder.
func (flt *Filter) RemainderBits() uint { return intbits.CeilLog2(flt.footer.P) }

// DataLen returns the byte length of the bit-packed data section.
func (flt *Filter) DataLen() uint64 { return flt.footer.DataLen }

// Data returns the bit-packed data section. The slice aliases the mapping
// and is invalid after Close; Data returns nil once the filter is closed.
func (flt *Filter) Data() []byte {
	if flt.closed.Load() {
		return nil
	}
	return flt.data[:flt.footer.DataLen]
}

// IndexEntries returns a copy of the index.
func (flt *Filter) IndexEntries() []IndexEntry {
	return append([]IndexEntry(nil), flt.index...)
}

// Stats returns filter statistics.
func (flt *Filter) Stats() Stats {
	s := Stats{
		N:             flt.footer.N,
		P:             flt.footer.P,
		RemainderBits: flt.RemainderBits(),
		DataBytes:     flt.footer.DataLen,
		IndexEntries:  flt.footer.IndexCount,
		FileSize:      int64(len(flt.data)),
	}
	if s.N > 0 {
		s.BitsPerElement = float64(s.DataBytes*8) / float64(s.N)
	}
	return s
}

// Close releases the memory mapping. Idempotent.
func (flt *Filter) Close() error {
	if flt.closed.Swap(true) {
		return nil
	}
	if flt.mmap != nil {
		err := flt.mmap.Unmap()
		flt.mmap = nil
		flt.data = nil
		return err
	}
	return nil
}
