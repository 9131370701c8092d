package gcs

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/tamirms/gcs/internal/bitio"
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

// generateValues returns n pseudo-random values, with roughly dupFraction of
// them repeating an earlier value.
func generateValues(rng *rand.Rand, n int, dupFraction float64) []uint64 {
	vals := make([]uint64, n)
	for i := range vals {
		if i > 0 && rng.Float64() < dupFraction {
			vals[i] = vals[rng.IntN(i)]
			continue
		}
		vals[i] = rng.Uint64()
	}
	return vals
}

// shuffled returns a shuffled copy of vals.
func shuffled(rng *rand.Rand, vals []uint64) []uint64 {
	out := slices.Clone(vals)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// referenceSet computes the sorted residue set directly.
func referenceSet(vals []uint64, p uint64) []uint64 {
	if len(vals) == 0 {
		return nil
	}
	np := uint64(len(vals)) * p
	out := make([]uint64, len(vals))
	for i, v := range vals {
		out[i] = v % np
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// buildInMemory builds a filter with Builder and returns its bytes.
func buildInMemory(t testing.TB, vals []uint64, p uint64, opts ...BuildOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	b, err := NewBuilder(&buf, p, opts...)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for _, v := range vals {
		if err := b.Add(v); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return buf.Bytes()
}

// buildExternal builds a filter with ExternalBuilder and returns its bytes.
func buildExternal(t testing.TB, vals []uint64, p uint64, opts ...BuildOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]BuildOption{TempDir(t.TempDir())}, opts...)
	b, err := NewExternalBuilder(&buf, p, uint64(len(vals)), opts...)
	if err != nil {
		t.Fatalf("NewExternalBuilder: %v", err)
	}
	for _, v := range vals {
		if err := b.Add(v); err != nil {
			b.Close()
			t.Fatalf("Add: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return buf.Bytes()
}

// decodedFilter is the result of fully decoding a filter.
type decodedFilter struct {
	filter *Filter
	values []uint64
	ends   []uint64 // bit position after each value
}

// decodeFilter parses data and decodes every value from the data section.
// Pad bits decode as zero gaps, which cannot occur after the first value,
// so the first zero gap past position 0 ends the stream.
func decodeFilter(t testing.TB, data []byte) decodedFilter {
	t.Helper()
	flt, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	p := flt.P()
	width := flt.RemainderBits()
	br := bitio.NewReader(flt.Data())
	dataBits := flt.DataLen() * 8

	var out decodedFilter
	out.filter = flt
	var last uint64
	for br.Pos() < dataBits {
		q, err := br.ReadUnary()
		if err != nil {
			break
		}
		r, err := br.ReadBits(width)
		if err != nil {
			break
		}
		gap := q*p + r
		if len(out.values) > 0 && gap == 0 {
			break
		}
		last += gap
		out.values = append(out.values, last)
		out.ends = append(out.ends, br.Pos())
	}
	return out
}

// expectedIndex derives the index a correct writer records for a decode.
func (d decodedFilter) expectedIndex(granularity int) []IndexEntry {
	var want []IndexEntry
	if granularity <= 0 {
		return want
	}
	for i := granularity; i < len(d.values); i += granularity {
		want = append(want, IndexEntry{Value: d.values[i], BitOffset: d.ends[i]})
	}
	return want
}
