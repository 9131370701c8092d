package gcs

import (
	streamerrors "github.com/tamirms/gcs/errors"
	"github.com/tamirms/gcs/internal/encoding"
)

const (
	// magic marks the end of every filter file.
	magic = "[GCS:v0]"

	// footerSize is the exact size of the serialized footer: four words
	// followed by the 8-byte magic.
	footerSize = 4*8 + 8

	// indexEntrySize is the size of each index entry (16 bytes).
	indexEntrySize = 16

	// DefaultIndexGranularity is the default number of elements between index entries.
	DefaultIndexGranularity = 1024
)

// footer is the fixed trailer written after the index.
//
// Layout (big-endian):
//
//	Offset  Size  Field        Type
//	0       8     N            uint64_be (count of values before deduplication)
//	8       8     P            uint64_be (Golomb-Rice modulus)
//	16      8     DataLen      uint64_be (byte length of the bit-packed data section)
//	24      8     IndexCount   uint64_be (number of index entries)
//	32      8     Magic        "[GCS:v0]"
//
// The index region starts at DataLen and holds IndexCount entries, so a
// reader can locate it from the footer alone.
type footer struct {
	N          uint64
	P          uint64
	DataLen    uint64
	IndexCount uint64
}

// encodeTo serializes the footer and magic into buf[0:footerSize].
func (f *footer) encodeTo(buf []byte) {
	_ = buf[footerSize-1]
	encoding.PutUint64BE(buf[0:8], f.N)
	encoding.PutUint64BE(buf[8:16], f.P)
	encoding.PutUint64BE(buf[16:24], f.DataLen)
	encoding.PutUint64BE(buf[24:32], f.IndexCount)
	copy(buf[32:footerSize], magic)
}

// decodeFooter parses the last footerSize bytes of a filter.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, streamerrors.ErrTruncatedFile
	}
	if string(buf[32:footerSize]) != magic {
		return nil, streamerrors.ErrInvalidMagic
	}

	f := &footer{
		N:          encoding.Uint64BE(buf[0:8]),
		P:          encoding.Uint64BE(buf[8:16]),
		DataLen:    encoding.Uint64BE(buf[16:24]),
		IndexCount: encoding.Uint64BE(buf[24:32]),
	}
	if f.P == 0 {
		return nil, streamerrors.ErrCorruptedFilter
	}
	return f, nil
}

// IndexEntry records the bit position in the data section immediately after
// the element with the given value was encoded.
//
// Wire format (16 bytes, big-endian):
//
//	Offset  Size  Field      Type
//	0       8     Value      uint64_be
//	8       8     BitOffset  uint64_be
type IndexEntry struct {
	Value     uint64
	BitOffset uint64
}

// encodeIndexEntryTo serializes an index entry into buf[0:16].
func encodeIndexEntryTo(e IndexEntry, buf []byte) {
	encoding.PutUint64BE(buf[0:8], e.Value)
	encoding.PutUint64BE(buf[8:16], e.BitOffset)
}

// decodeIndexEntry parses a 16-byte index entry.
func decodeIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		Value:     encoding.Uint64BE(buf[0:8]),
		BitOffset: encoding.Uint64BE(buf[8:16]),
	}
}
