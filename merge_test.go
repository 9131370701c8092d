package gcs

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// failingSource yields vals then reports e.
type failingSource struct {
	sliceSource
	e error
}

func (s *failingSource) err() error {
	if s.pos >= len(s.vals) {
		return s.e
	}
	return nil
}

func drain(src valueSource) []uint64 {
	var out []uint64
	for {
		v, ok := src.next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func sliceSources(parts ...[]uint64) []valueSource {
	sources := make([]valueSource, len(parts))
	for i, p := range parts {
		sources[i] = &sliceSource{vals: p}
	}
	return sources
}

// ============================================================================
// Merge Semantics
// ============================================================================

func TestStreamMerger(t *testing.T) {
	tests := []struct {
		name  string
		parts [][]uint64
		want  []uint64
	}{
		{"two streams", [][]uint64{{2, 5, 8}, {5, 7}}, []uint64{2, 5, 7, 8}},
		{"no streams", nil, nil},
		{"single stream", [][]uint64{{1, 2, 3}}, []uint64{1, 2, 3}},
		{"empty streams", [][]uint64{{}, {4}, {}}, []uint64{4}},
		{"identical streams", [][]uint64{{1, 9}, {1, 9}, {1, 9}}, []uint64{1, 9}},
		{"disjoint", [][]uint64{{10, 11}, {0, 1}}, []uint64{0, 1, 10, 11}},
		{"zero and max", [][]uint64{{0, ^uint64(0)}, {0}}, []uint64{0, ^uint64(0)}},
		{"interleaved", [][]uint64{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newStreamMerger(sliceSources(tt.parts...))
			got := drain(m)
			if !slices.Equal(got, tt.want) {
				t.Errorf("merged = %v, want %v", got, tt.want)
			}
			if err := m.err(); err != nil {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestStreamMergerRandomPartitions(t *testing.T) {
	rng := newTestRNG(t)

	for _, k := range []int{1, 2, 3, 8, 33} {
		t.Run(fmt.Sprintf("k%d", k), func(t *testing.T) {
			// Small universe forces heavy cross-stream overlap.
			parts := make([][]uint64, k)
			var all []uint64
			for i := range parts {
				for range rng.IntN(500) {
					v := rng.Uint64N(2000)
					parts[i] = append(parts[i], v)
					all = append(all, v)
				}
				slices.Sort(parts[i])
				parts[i] = slices.Compact(parts[i])
			}
			slices.Sort(all)
			want := slices.Compact(all)

			got := drain(newStreamMerger(sliceSources(parts...)))
			if !slices.Equal(got, want) {
				t.Fatalf("merged %d values, want %d", len(got), len(want))
			}
		})
	}
}

func TestStreamMergerSourceError(t *testing.T) {
	errBoom := errors.New("boom")
	sources := []valueSource{
		&sliceSource{vals: []uint64{1, 2, 3, 4, 5, 6}},
		&failingSource{sliceSource: sliceSource{vals: []uint64{2}}, e: errBoom},
	}
	m := newStreamMerger(sources)
	got := drain(m)
	if !errors.Is(m.err(), errBoom) {
		t.Fatalf("err = %v, want %v", m.err(), errBoom)
	}
	// Nothing past the failure point is emitted.
	if len(got) > 1 {
		t.Errorf("emitted %v after source failure", got)
	}
}

// ============================================================================
// Heap
// ============================================================================

func TestMergeHeapOrder(t *testing.T) {
	rng := newTestRNG(t)
	h := newMergeHeap(0)
	var want []uint64
	for i := range 1000 {
		v := rng.Uint64N(100)
		h.push(v, i)
		want = append(want, v)
	}
	slices.Sort(want)

	lastSource := -1
	for i, w := range want {
		v, src := h.pop()
		if v != w {
			t.Fatalf("pop %d = %d, want %d", i, v, w)
		}
		// Equal values come out in source order.
		if i > 0 && want[i-1] == v && src < lastSource {
			t.Fatalf("pop %d: source %d after %d for equal value %d", i, src, lastSource, v)
		}
		lastSource = src
	}
	if h.len() != 0 {
		t.Errorf("len = %d after draining", h.len())
	}
}
