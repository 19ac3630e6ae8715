// SPDX-License-Identifier: MIT
package audio

import "math"

func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// fullScale returns the largest sample magnitude for the configured width.
func (e *Engine) fullScale() float64 {
	if e.config != nil && e.config.Audio.Bits == 8 {
		return math.MaxInt8
	}
	return math.MaxInt16
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.gateThreshold.Store(int32(math.Round(threshold * e.fullScale())))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold.Load()) / e.fullScale()
}

// gateOpen reports whether a buffer with the given peak passes the gate.
// A disabled gate always passes.
func (e *Engine) gateOpen(peak int32) bool {
	return !e.gateEnabled.Load() || peak > e.gateThreshold.Load()
}

// peakAmplitude returns max |sample| without branching per sample. Samples
// are widened to int32 first so |-32768| does not overflow.
func peakAmplitude[T int8 | int16](buffer []T) int32 {
	var maxAmplitude int32
	for _, s := range buffer {
		// Get absolute value without branching.
		sample := int32(s)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask

		// Update max using math instead of branching.
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}
