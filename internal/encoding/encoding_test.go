package encoding

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(s1, s2))
}

func TestRecordRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{1, 2, 7, 100, 1000} {
		vals := make([]uint64, n)
		for i := range vals {
			vals[i] = rng.Uint64()
		}
		vals[0] = math.MaxUint64

		buf := make([]byte, n*RecordSize)
		if got := PutUint64s(buf, vals); got != len(buf) {
			t.Fatalf("n=%d: PutUint64s wrote %d bytes, want %d", n, got, len(buf))
		}

		out := Uint64s(make([]uint64, 0, n), buf)
		if len(out) != n {
			t.Fatalf("n=%d: decoded %d records", n, len(out))
		}
		for i := range vals {
			if out[i] != vals[i] {
				t.Fatalf("n=%d: record %d = %d, want %d", n, i, out[i], vals[i])
			}
		}
	}
}

// TestRecordLayout pins the on-disk byte order of chunk records.
func TestRecordLayout(t *testing.T) {
	buf := make([]byte, RecordSize)
	PutUint64s(buf, []uint64{0x0102030405060708})
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, buf[i], want[i])
		}
	}
}

func TestUint64sPartialAndCapacity(t *testing.T) {
	buf := make([]byte, 3*RecordSize+5)
	PutUint64s(buf, []uint64{1, 2, 3})

	// Trailing partial record is dropped.
	if got := Uint64s(make([]uint64, 0, 8), buf); len(got) != 3 {
		t.Errorf("partial tail: decoded %d records, want 3", len(got))
	}

	// Decoding is bounded by dst capacity.
	if got := Uint64s(make([]uint64, 0, 2), buf); len(got) != 2 || got[1] != 2 {
		t.Errorf("capacity bound: got %v, want [1 2]", got)
	}
}

func TestBigEndianFields(t *testing.T) {
	buf := make([]byte, 8)
	PutUint64BE(buf, 0x0102030405060708)
	if buf[0] != 0x01 || buf[7] != 0x08 {
		t.Fatalf("PutUint64BE layout = % X", buf)
	}
	if got := Uint64BE(buf); got != 0x0102030405060708 {
		t.Fatalf("Uint64BE = 0x%X", got)
	}
}
