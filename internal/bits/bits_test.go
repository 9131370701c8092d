package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/big"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestCeilLog2EdgeCases tests powers of two and their neighbours,
// where float-based log2 is most likely to go wrong.
func TestCeilLog2EdgeCases(t *testing.T) {
	tests := []struct {
		p    uint64
		want uint
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{1 << 20, 20},
		{1<<20 + 1, 21},
		{1<<53 + 1, 54},
		{1 << 63, 63},
		{1<<63 + 1, 64},
		{math.MaxUint64, 64},
	}
	for _, tc := range tests {
		if got := CeilLog2(tc.p); got != tc.want {
			t.Errorf("CeilLog2(%d) = %d, want %d", tc.p, got, tc.want)
		}
	}
}

// TestCeilLog2Capacity verifies that p-1 always fits in CeilLog2(p) bits and
// that one fewer bit is never enough.
func TestCeilLog2Capacity(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		p := rng.Uint64N(math.MaxUint64-1) + 2 // p in [2, MaxUint64]
		w := CeilLog2(p)
		if w == 0 || w > 64 {
			t.Fatalf("iter %d: CeilLog2(%d) = %d out of range", i, p, w)
		}
		if (p-1)&^LowMask(w) != 0 {
			t.Fatalf("iter %d: p-1=%d does not fit in %d bits", i, p-1, w)
		}
		if (p-1)&^LowMask(w-1) == 0 {
			t.Fatalf("iter %d: p-1=%d fits in %d bits, CeilLog2 too large", i, p-1, w-1)
		}
	}
}

// TestMulOverflows compares against big.Int multiplication.
func TestMulOverflows(t *testing.T) {
	rng := newTestRNG(t)
	limit := new(big.Int).SetUint64(math.MaxUint64)

	for i := 0; i < 10000; i++ {
		a := rng.Uint64() >> rng.UintN(64)
		b := rng.Uint64() >> rng.UintN(64)
		prod := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
		want := prod.Cmp(limit) > 0
		if got := MulOverflows(a, b); got != want {
			t.Fatalf("iter %d: MulOverflows(%d, %d) = %v, want %v", i, a, b, got, want)
		}
	}

	if MulOverflows(0, math.MaxUint64) {
		t.Error("MulOverflows(0, MaxUint64) = true")
	}
	if !MulOverflows(1<<32, 1<<32) {
		t.Error("MulOverflows(2^32, 2^32) = false")
	}
}

func TestLowMask(t *testing.T) {
	for n := uint(0); n <= 64; n++ {
		m := LowMask(n)
		if got := uint(popcount(m)); got != n {
			t.Errorf("LowMask(%d) has %d bits set", n, got)
		}
	}
}

func popcount(v uint64) int {
	c := 0
	for v != 0 {
		v &= v - 1
		c++
	}
	return c
}
