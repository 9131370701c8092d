// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// CeilLog2 returns ceil(log2(p)), the number of bits needed to hold any
// remainder in [0, p). CeilLog2(0) and CeilLog2(1) are 0.
//
// Computed with integer arithmetic: math.Log2 on float64 loses precision
// above 2^53 and rounds values just above a power of two down.
func CeilLog2(p uint64) uint {
	if p <= 1 {
		return 0
	}
	return uint(bits.Len64(p - 1))
}

// MulOverflows reports whether a*b does not fit in a uint64.
func MulOverflows(a, b uint64) bool {
	hi, _ := bits.Mul64(a, b)
	return hi != 0
}

// LowMask returns a mask with the n low-order bits set. n may be 0..64.
func LowMask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
