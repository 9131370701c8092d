// Package bitio provides the MSB-first bit sink that Golomb-Rice streams are
// written through, and the matching reader.
//
// Bits are packed most-significant-bit first within each byte. Partial bytes
// are carried across WriteBits calls; Flush pads the final partial byte with
// zero bits. Once aligned, whole bytes may be appended with Write, which is
// how the index and footer follow the bit-packed data in the same stream.
package bitio

import (
	"bufio"
	"errors"
	"io"

	"github.com/c2h5oh/datasize"
	streamerrors "github.com/tamirms/gcs/errors"
	intbits "github.com/tamirms/gcs/internal/bits"
)

// DefaultBufferSize is the size of the byte buffer between the bit packer
// and the underlying writer.
const DefaultBufferSize = int(256 * datasize.KB)

// =============================================================================
// Bit Writer
// =============================================================================

// Writer packs bits MSB-first onto an io.Writer.
type Writer struct {
	out    *bufio.Writer
	closer io.Closer // nil if the destination is not an io.Closer

	current uint64 // pending bits, right-aligned
	pending uint   // number of pending bits, always < 8 between calls

	written uint64 // total bits accepted, including pad bits
	closed  bool
}

// NewWriter returns a Writer on w with the default buffer size. If w is an
// io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, DefaultBufferSize)
}

// NewWriterSize returns a Writer on w with a byte buffer of at least size bytes.
func NewWriterSize(w io.Writer, size int) *Writer {
	bw := &Writer{out: bufio.NewWriterSize(w, size)}
	if c, ok := w.(io.Closer); ok {
		bw.closer = c
	}
	return bw
}

// WriteBits writes the n low-order bits of v, most significant first.
// n may be 0..64. Returns the number of bits written (n on success).
func (bw *Writer) WriteBits(n uint, v uint64) (int, error) {
	if bw.closed {
		return 0, streamerrors.ErrSinkClosed
	}
	if n > 64 {
		return 0, streamerrors.ErrBitCount
	}
	if n == 0 {
		return 0, nil
	}
	// Keep pending+n within one word.
	if n > 56 {
		hi, err := bw.WriteBits(n-32, v>>32)
		if err != nil {
			return hi, err
		}
		lo, err := bw.WriteBits(32, v)
		return hi + lo, err
	}

	bw.current = bw.current<<n | (v & intbits.LowMask(n))
	bw.pending += n
	for bw.pending >= 8 {
		bw.pending -= 8
		if err := bw.out.WriteByte(byte(bw.current >> bw.pending)); err != nil {
			return 0, err
		}
	}
	bw.current &= intbits.LowMask(bw.pending)
	bw.written += uint64(n)
	return int(n), nil
}

// WriteOnes writes a run of n one-bits. Unlike WriteBits, n is unbounded.
func (bw *Writer) WriteOnes(n uint64) (uint64, error) {
	var total uint64
	for n > 0 {
		step := uint(56)
		if n < 56 {
			step = uint(n)
		}
		w, err := bw.WriteBits(step, ^uint64(0))
		total += uint64(w)
		if err != nil {
			return total, err
		}
		n -= uint64(step)
	}
	return total, nil
}

// Flush pads the current partial byte with zero bits. Returns the number of
// pad bits written (0 if already aligned). Buffered bytes are not pushed to
// the underlying writer until Close.
func (bw *Writer) Flush() (int, error) {
	if bw.closed {
		return 0, streamerrors.ErrSinkClosed
	}
	if bw.pending == 0 {
		return 0, nil
	}
	pad := 8 - bw.pending
	if err := bw.out.WriteByte(byte(bw.current << pad)); err != nil {
		return 0, err
	}
	bw.current = 0
	bw.pending = 0
	bw.written += uint64(pad)
	return int(pad), nil
}

// Aligned reports whether the stream is on a byte boundary.
func (bw *Writer) Aligned() bool {
	return bw.pending == 0
}

// Write appends whole bytes. The stream must be byte-aligned.
func (bw *Writer) Write(p []byte) (int, error) {
	if bw.closed {
		return 0, streamerrors.ErrSinkClosed
	}
	if bw.pending != 0 {
		return 0, streamerrors.ErrUnaligned
	}
	n, err := bw.out.Write(p)
	bw.written += uint64(n) * 8
	return n, err
}

// BitsWritten returns the total number of bits written so far, including
// pad bits and bytes appended with Write.
func (bw *Writer) BitsWritten() uint64 {
	return bw.written
}

// Close pads any partial byte, flushes buffered bytes and closes the
// underlying writer if it is an io.Closer. Idempotent.
func (bw *Writer) Close() error {
	if bw.closed {
		return nil
	}
	_, padErr := bw.Flush()
	bw.closed = true
	flushErr := bw.out.Flush()
	var closeErr error
	if bw.closer != nil {
		closeErr = bw.closer.Close()
	}
	return errors.Join(padErr, flushErr, closeErr)
}

// Abort closes the underlying writer without flushing buffered bytes.
// Idempotent; safe to call after Close.
func (bw *Writer) Abort() error {
	if bw.closed {
		return nil
	}
	bw.closed = true
	if bw.closer != nil {
		return bw.closer.Close()
	}
	return nil
}

// =============================================================================
// Bit Reader
// =============================================================================

// Reader reads an MSB-first bit stream from a byte slice.
type Reader struct {
	data   []byte
	bitPos uint64
}

// NewReader returns a Reader positioned at the first bit of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Seek positions the reader at an absolute bit offset.
func (br *Reader) Seek(bitOffset uint64) {
	br.bitPos = bitOffset
}

// Pos returns the current absolute bit offset.
func (br *Reader) Pos() uint64 {
	return br.bitPos
}

func (br *Reader) remaining() uint64 {
	total := uint64(len(br.data)) * 8
	if br.bitPos >= total {
		return 0
	}
	return total - br.bitPos
}

// ReadBits reads n bits (0..64), most significant first.
func (br *Reader) ReadBits(n uint) (uint64, error) {
	if n > 64 {
		return 0, streamerrors.ErrBitCount
	}
	if uint64(n) > br.remaining() {
		return 0, io.ErrUnexpectedEOF
	}
	var v uint64
	for n > 0 {
		byteIdx := br.bitPos / 8
		used := uint(br.bitPos % 8)
		avail := 8 - used
		take := min(avail, n)
		chunk := uint64(br.data[byteIdx]>>(avail-take)) & intbits.LowMask(take)
		v = v<<take | chunk
		n -= take
		br.bitPos += uint64(take)
	}
	return v, nil
}

// ReadUnary counts one-bits up to and including the terminating zero-bit and
// returns the count of ones.
func (br *Reader) ReadUnary() (uint64, error) {
	var q uint64
	for {
		b, err := br.ReadBits(1)
		if err != nil {
			return q, err
		}
		if b == 0 {
			return q, nil
		}
		q++
	}
}
