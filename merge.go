package gcs

// mergeHeap is a min-heap of stream heads ordered by value.
// Uses index-based heap for O(log k) push/pop.
type mergeHeap struct {
	values  []uint64 // Head value of each live stream
	sources []int    // Corresponding source index
}

func newMergeHeap(capacity int) *mergeHeap {
	return &mergeHeap{
		values:  make([]uint64, 0, capacity),
		sources: make([]int, 0, capacity),
	}
}

func (h *mergeHeap) len() int {
	return len(h.values)
}

// min returns the smallest value without removing it. The heap must be non-empty.
func (h *mergeHeap) min() uint64 {
	return h.values[0]
}

// push adds an element and maintains heap property. O(log k).
func (h *mergeHeap) push(value uint64, source int) {
	h.values = append(h.values, value)
	h.sources = append(h.sources, source)
	h.up(len(h.values) - 1)
}

// pop removes and returns the smallest element. O(log k).
func (h *mergeHeap) pop() (uint64, int) {
	n := len(h.values) - 1
	h.swap(0, n)
	h.down(0, n)
	value := h.values[n]
	source := h.sources[n]
	h.values = h.values[:n]
	h.sources = h.sources[:n]
	return value, source
}

func (h *mergeHeap) swap(i, j int) {
	h.values[i], h.values[j] = h.values[j], h.values[i]
	h.sources[i], h.sources[j] = h.sources[j], h.sources[i]
}

func (h *mergeHeap) less(i, j int) bool {
	// Min-heap by value
	if h.values[i] != h.values[j] {
		return h.values[i] < h.values[j]
	}
	// Deterministic tie-break by source
	return h.sources[i] < h.sources[j]
}

func (h *mergeHeap) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *mergeHeap) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2 // right child
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}

// streamMerger merges k ascending, internally duplicate-free sources into
// one ascending sequence in which every distinct value appears once, no
// matter how many sources contained it.
//
// Each step pops the minimum, refills from that source, then keeps popping
// (and refilling) while the new minimum equals the value just taken. An
// exhausted source simply stops being refilled.
type streamMerger struct {
	sources []valueSource
	heap    *mergeHeap
	e       error
}

func newStreamMerger(sources []valueSource) *streamMerger {
	m := &streamMerger{
		sources: sources,
		heap:    newMergeHeap(len(sources)),
	}
	for i := range sources {
		m.pull(i)
	}
	return m
}

// pull moves the next value of source i into the heap.
func (m *streamMerger) pull(i int) {
	v, ok := m.sources[i].next()
	if ok {
		m.heap.push(v, i)
		return
	}
	if err := m.sources[i].err(); err != nil && m.e == nil {
		m.e = err
	}
}

func (m *streamMerger) next() (uint64, bool) {
	if m.e != nil || m.heap.len() == 0 {
		return 0, false
	}

	v, pos := m.heap.pop()
	m.pull(pos)
	for m.heap.len() > 0 && m.heap.min() == v {
		_, dup := m.heap.pop()
		m.pull(dup)
	}

	if m.e != nil {
		return 0, false
	}
	return v, true
}

func (m *streamMerger) err() error {
	return m.e
}
