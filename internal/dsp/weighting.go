// SPDX-License-Identifier: MIT
package dsp

import "math"

// MinWeighting is returned by AWeighting for frequencies at or below 0 Hz.
const MinWeighting = -math.MaxFloat64

// A-weighting pole frequencies in Hz (IEC 61672).
const (
	poleA1 = 20.598997
	poleA2 = 107.65265
	poleA3 = 737.86223
	poleA4 = 12194.22
)

// AWeighting returns the A-weighting gain in dB for freq (Hz). The curve is
// normalised to 0 dB at 1 kHz.
func AWeighting(freq float64) float64 {
	if freq <= 0 {
		return MinWeighting
	}
	f2 := freq * freq
	f4 := f2 * f2
	mid := 1.562339 * f4 / ((f2 + poleA2*poleA2) * (f2 + poleA3*poleA3))
	outer := 2.242881e16 * f4 / (sq(f2+poleA1*poleA1) * sq(f2+poleA4*poleA4))
	return 10*math.Log10(mid) + 10*math.Log10(outer)
}

func sq(x float64) float64 { return x * x }
