// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// History is a fixed-depth FIFO of equal-width frames. Pushing a frame
// evicts the oldest one. Averages always divide by the full depth, so until
// depth frames have been pushed the empty slots count as zeros.
//
// History is not safe for concurrent use; Analyzer guards it.
type History struct {
	slots  [][]float64 // slots[0] is the oldest frame, slots[depth-1] the newest.
	width  int
	pushes uint64
}

// NewHistory allocates depth zeroed slots of width values each.
func NewHistory(depth, width int) (*History, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: history depth %d", ErrInvalidOptions, depth)
	}
	if width < 1 {
		return nil, fmt.Errorf("%w: history width %d", ErrInvalidOptions, width)
	}
	slots := make([][]float64, depth)
	for i := range slots {
		slots[i] = make([]float64, width)
	}
	return &History{slots: slots, width: width}, nil
}

// Depth returns the number of slots.
func (h *History) Depth() int { return len(h.slots) }

// Width returns the number of values per slot.
func (h *History) Width() int { return h.width }

// Pushes returns the total number of frames pushed since creation.
func (h *History) Pushes() uint64 { return h.pushes }

// Push shifts every slot one position towards the front and copies frame
// into the newest slot. The evicted slot's storage is reused. Only the
// first Width values of frame are used; a shorter frame leaves the tail at
// zero.
func (h *History) Push(frame []float64) {
	oldest := h.slots[0]
	copy(h.slots, h.slots[1:])
	h.slots[len(h.slots)-1] = oldest

	n := copy(oldest, frame)
	clear(oldest[n:])
	h.pushes++
}

// Average returns the mean of index i over all slots, or 0 if i is out of
// range.
func (h *History) Average(i int) float64 {
	if i < 0 || i >= h.width {
		return 0
	}
	var sum float64
	for _, s := range h.slots {
		sum += s[i]
	}
	return sum / float64(len(h.slots))
}

// AverageInto writes the per-index mean into dst, which must be Width long.
func (h *History) AverageInto(dst []float64) {
	clear(dst)
	for _, s := range h.slots {
		floats.Add(dst, s)
	}
	floats.Scale(1/float64(len(h.slots)), dst)
}

// Latest copies the newest frame into dst and returns the number of values
// copied.
func (h *History) Latest(dst []float64) int {
	return copy(dst, h.slots[len(h.slots)-1])
}

// Slot returns a copy of the frame at age 0 (newest) through Depth-1
// (oldest).
func (h *History) Slot(age int) []float64 {
	if age < 0 || age >= len(h.slots) {
		return nil
	}
	out := make([]float64, h.width)
	copy(out, h.slots[len(h.slots)-1-age])
	return out
}

// Reset zeroes every slot.
func (h *History) Reset() {
	for _, s := range h.slots {
		clear(s)
	}
	h.pushes = 0
}
