// Package encoding provides the fixed-width record codec for chunk files.
//
// Chunk records are 8-byte little-endian uint64 values. The byte order is
// private to a single build (chunks never leave the machine that wrote them);
// the produced filter itself is big-endian and encoded elsewhere.
package encoding

import "encoding/binary"

// RecordSize is the on-disk size of one chunk record.
const RecordSize = 8

// PutUint64s encodes vals into dst, which must hold len(vals)*RecordSize bytes.
// Returns the number of bytes written.
func PutUint64s(dst []byte, vals []uint64) int {
	if len(vals) == 0 {
		return 0
	}
	_ = dst[len(vals)*RecordSize-1]
	for i, v := range vals {
		binary.LittleEndian.PutUint64(dst[i*RecordSize:], v)
	}
	return len(vals) * RecordSize
}

// Uint64s decodes whole records from src into dst and returns the filled
// prefix of dst. Trailing bytes that do not form a whole record are ignored;
// callers detect them through the length they asked for.
func Uint64s(dst []uint64, src []byte) []uint64 {
	n := len(src) / RecordSize
	if n > cap(dst) {
		n = cap(dst)
	}
	dst = dst[:n]
	for i := range n {
		dst[i] = binary.LittleEndian.Uint64(src[i*RecordSize:])
	}
	return dst
}

// PutUint64BE writes v big-endian into buf[0:8]. The filter index and footer
// fields use this layout.
func PutUint64BE(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}

// Uint64BE reads a big-endian uint64 from buf[0:8].
func Uint64BE(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}
