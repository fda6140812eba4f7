package main

// gestureHistory counts alternating movement on one oscillating axis
// (lateral or vertical) to detect shakes.
//
// Only the two active directions are ever keys of counts. A neutral trend
// clears the axis, and so does a detected shake.
//
// This is intended to be called only by the daemon goroutine (single-owner).
type gestureHistory struct {
	axis   axis
	counts map[Trend]int
}

func newGestureHistory(a axis) *gestureHistory {
	return &gestureHistory{
		axis:   a,
		counts: make(map[Trend]int, 2),
	}
}

// record adds one trend reading. When both directions have been seen at
// least shakeThreshold times since the last reset, it returns a copy of the
// counts, clears the axis and reports true.
func (h *gestureHistory) record(t Trend) (map[Trend]int, bool) {
	switch t {
	case h.axis.Increase, h.axis.Decrease:
		h.counts[t]++
	default:
		h.reset()
		return nil, false
	}

	if h.counts[h.axis.Increase] < shakeThreshold || h.counts[h.axis.Decrease] < shakeThreshold {
		return nil, false
	}

	shake := h.snapshot()
	h.reset()
	return shake, true
}

// snapshot returns a copy of the current counts.
func (h *gestureHistory) snapshot() map[Trend]int {
	out := make(map[Trend]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

func (h *gestureHistory) reset() {
	clear(h.counts)
}
