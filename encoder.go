package gcs

import (
	intbits "github.com/tamirms/gcs/internal/bits"
)

// bitSink is the bit-level output the encoder writes through.
// WriteBits writes the n (0..64) low-order bits of v MSB-first and returns
// the number of bits written; WriteOnes writes an unbounded run of one-bits;
// Flush pads to a byte boundary and returns the number of pad bits.
type bitSink interface {
	WriteBits(n uint, v uint64) (int, error)
	WriteOnes(n uint64) (uint64, error)
	Flush() (int, error)
}

// golombEncoder writes Golomb-Rice codes with modulus p: the quotient v/p in
// unary (q one-bits then a zero-bit) followed by the remainder v%p in exactly
// ceil(log2(p)) bits.
type golombEncoder struct {
	sink  bitSink
	p     uint64
	log2p uint
}

func newGolombEncoder(sink bitSink, p uint64) *golombEncoder {
	return &golombEncoder{
		sink:  sink,
		p:     p,
		log2p: intbits.CeilLog2(p),
	}
}

// encode writes v and returns the number of bits written: v/p + 1 + log2p.
func (e *golombEncoder) encode(v uint64) (uint64, error) {
	q := v / e.p
	r := v % e.p

	// The quotient is unbounded.
	written, err := e.sink.WriteOnes(q)
	if err != nil {
		return written, err
	}
	n, err := e.sink.WriteBits(1, 0)
	written += uint64(n)
	if err != nil {
		return written, err
	}
	n, err = e.sink.WriteBits(e.log2p, r)
	written += uint64(n)
	return written, err
}

// finish pads the stream to a byte boundary and returns the pad bit count.
func (e *golombEncoder) finish() (uint64, error) {
	n, err := e.sink.Flush()
	return uint64(n), err
}
