package sim

// History is a bounded ring of past buffer states, most recent first.
//
// The ring grows by cloning until it reaches its maximum depth. After that a
// push recycles the storage of the evicted oldest state, so advancing on the
// hot path performs no allocation.
type History struct {
	slots []Tensor // physical storage, len == count once grown
	head  int      // physical index of logical slot 0
	count int
	max   int
}

// Len returns the number of occupied history slots.
func (h *History) Len() int { return h.count }

// MaxDepth returns the configured maximum depth.
func (h *History) MaxDepth() int { return h.max }

// At returns the state i steps back (0 = most recent). It returns nil when
// i is out of range.
func (h *History) At(i int) Tensor {
	if i < 0 || i >= h.count {
		return nil
	}
	return h.slots[(h.head+i)%len(h.slots)]
}

// Real returns slot i as a real-space array, or nil.
func (h *History) Real(i int) *Array[float64] {
	a, _ := h.At(i).(*Array[float64])
	return a
}

// Spectrum returns slot i as a reciprocal-space array, or nil.
func (h *History) Spectrum(i int) *Array[complex128] {
	a, _ := h.At(i).(*Array[complex128])
	return a
}

// States returns the occupied slots in order, most recent first.
func (h *History) States() []Tensor {
	out := make([]Tensor, h.count)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// raise lifts the maximum depth. It never shrinks.
func (h *History) raise(depth int) {
	if depth <= h.max {
		return
	}
	// Unroll the ring so logical order equals physical order before growing.
	if h.count > 0 && h.head != 0 {
		h.slots = h.States()
		h.head = 0
	}
	h.max = depth
}

// push rotates current into slot 0 and returns the new occupied count.
func (h *History) push(current Tensor) (int, error) {
	if h.max == 0 {
		return 0, nil
	}
	if h.count < h.max {
		// Growth phase: prepend a fresh clone.
		h.slots = append(h.slots, nil)
		copy(h.slots[1:], h.slots[:len(h.slots)-1])
		h.slots[0] = current.cloneTensor()
		h.head = 0
		h.count++
		return h.count, nil
	}
	// Full: the oldest slot sits just before head in ring order.
	oldest := (h.head + h.count - 1) % len(h.slots)
	if err := h.slots[oldest].copyTensor(current); err != nil {
		return h.count, err
	}
	h.head = oldest
	return h.count, nil
}
