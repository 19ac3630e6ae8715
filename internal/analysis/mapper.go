// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"consolefft/internal/dsp"
)

// DefaultNormalization is the default divisor K applied to window-normalised
// power before scaling.
const DefaultNormalization = 10.0

// MinMapperSize is the smallest transform size the logarithmic frequency
// axis supports: log10(N/2-1) must be positive.
const MinMapperSize = 8

// Mapper projects averaged spectrum bins onto a viewport. Both axes are
// logarithmic: x compresses towards the low bins, y compresses loud bins and
// is clamped to the viewport height.
//
// A Mapper is immutable and safe for concurrent use.
type Mapper struct {
	size      int
	windowSum float64
	norm      float64
	logBins   float64 // log10(N/2 - 1)
}

// NewMapper creates a Mapper for an N-point transform whose window
// coefficients sum to windowSum.
func NewMapper(size int, windowSum, normalization float64) (*Mapper, error) {
	if size < MinMapperSize {
		return nil, fmt.Errorf("%w: mapper needs at least %d points, got %d", dsp.ErrInvalidSize, MinMapperSize, size)
	}
	if windowSum == 0 || math.IsNaN(windowSum) || math.IsInf(windowSum, 0) {
		return nil, fmt.Errorf("%w: window sum %v", dsp.ErrDegenerateWindow, windowSum)
	}
	if !(normalization > 0) {
		return nil, fmt.Errorf("%w: normalization %v", ErrInvalidOptions, normalization)
	}
	return &Mapper{
		size:      size,
		windowSum: windowSum,
		norm:      normalization,
		logBins:   math.Log10(float64(size/2 - 1)),
	}, nil
}

// Size returns the transform size N.
func (m *Mapper) Size() int { return m.size }

// Normalization returns K.
func (m *Mapper) Normalization() float64 { return m.norm }

// Value returns (avg / windowSum) / K · scale.
func (m *Mapper) Value(avg, scale float64) float64 {
	return avg / m.windowSum / m.norm * scale
}

// Y maps an averaged power to a height in [0, height].
func (m *Mapper) Y(avg float64, height int, scale float64) float64 {
	v := m.Value(avg, scale)
	if v < 0 {
		v = 0
	}
	return math.Min(float64(height), math.Log10(v+1)/10*float64(height))
}

// X maps a bin index to a column in [0, width].
func (m *Mapper) X(bin, width int) float64 {
	if bin < 0 {
		bin = 0
	}
	return math.Min(float64(width), math.Log10(float64(bin+1))/m.logBins*float64(width))
}

// Project returns the pixel position of bin with averaged power avg: X and
// Y truncated to whole cells, so x is in [0, width] and y in [0, height].
func (m *Mapper) Project(bin int, avg float64, width, height int, scale float64) (x, y int) {
	return int(m.X(bin, width)), int(m.Y(avg, height, scale))
}
