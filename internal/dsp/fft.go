// SPDX-License-Identifier: MIT
/*
Package dsp implements the numeric core of the spectrum analyzer: a minimal
complex type, the analysis window library, an iterative radix-2
Cooley-Tukey transform and the A-weighting curve.

Transform notes:
  - Input length must be a power of two; sizes are validated, never rounded.
  - Butterfly twiddles come from a per-block recurrence seeded at 1+0i
    instead of calling sin/cos per butterfly. The recurrence drifts slightly
    over long blocks and results are compared against it, not against an
    ideal DFT.
  - The forward direction rotates by +2π/blockSize, the inverse by -2π/blockSize.
  - The inverse divides only the real part of every bin by N. The imaginary
    part is left scaled by N.

Thread Safety:
  - A Plan is immutable after BuildPlan and may be shared between goroutines.
  - FourierTransform keeps a single-slot plan cache behind a mutex.
*/
package dsp

import (
	"math"
	"sync"

	"consolefft/pkg/bitint"
)

// Plan holds the bit-reversal permutation for one transform size.
type Plan struct {
	size   int
	bits   int
	bitRev []int
}

// BuildPlan computes the permutation table for an n-point transform.
// n must be a power of two.
func BuildPlan(n int) (*Plan, error) {
	if err := validateSize(n); err != nil {
		return nil, err
	}
	numBits := bitint.Log2(n)
	bitRev := make([]int, n)
	for i := range bitRev {
		bitRev[i] = bitint.ReverseBits(i, numBits)
	}
	return &Plan{size: n, bits: numBits, bitRev: bitRev}, nil
}

// Size returns the transform length N.
func (p *Plan) Size() int { return p.size }

// Bits returns log2(N).
func (p *Plan) Bits() int { return p.bits }

// BitReversed returns the bit-reversed position of natural index i.
func (p *Plan) BitReversed(i int) int { return p.bitRev[i] }

// Forward transforms real samples into out. Both slices must be N long.
func (p *Plan) Forward(in []float64, out []Complex) error {
	return p.Transform(in, out, false)
}

// Inverse runs the inverse butterflies over real samples.
func (p *Plan) Inverse(in []float64, out []Complex) error {
	return p.Transform(in, out, true)
}

// Transform places each real input sample at its bit-reversed position in
// out and runs log2(N) butterfly passes.
func (p *Plan) Transform(in []float64, out []Complex, inverse bool) error {
	if err := validateBuffers(p.size, len(in), len(out)); err != nil {
		return err
	}
	for i, v := range in {
		out[p.bitRev[i]] = Complex{R: v}
	}
	p.butterflies(out, nil, inverse)
	return nil
}

// TransformComplex is Transform for complex input. in and out may be the
// same slice, in which case the permutation is done in place.
func (p *Plan) TransformComplex(in, out []Complex, inverse bool) error {
	if err := validateBuffers(p.size, len(in), len(out)); err != nil {
		return err
	}
	if p.size > 0 && &in[0] == &out[0] {
		for i, r := range p.bitRev {
			if i < r {
				out[i], out[r] = out[r], out[i]
			}
		}
	} else {
		for i, v := range in {
			out[p.bitRev[i]] = v
		}
	}
	p.butterflies(out, nil, inverse)
	return nil
}

// TransformDual transforms two equal-length channels in one pass structure,
// sharing the permutation and each twiddle update between them.
func (p *Plan) TransformDual(inL []float64, outL []Complex, inR []float64, outR []Complex, inverse bool) error {
	if err := validateBuffers(p.size, len(inL), len(outL)); err != nil {
		return err
	}
	if err := validateBuffers(p.size, len(inR), len(outR)); err != nil {
		return err
	}
	for i, r := range p.bitRev {
		outL[r] = Complex{R: inL[i]}
		outR[r] = Complex{R: inR[i]}
	}
	p.butterflies(outL, outR, inverse)
	return nil
}

// butterflies runs the in-place passes over a and, when non-nil, b.
func (p *Plan) butterflies(a, b []Complex, inverse bool) {
	n := p.size
	inverter := 1.0
	if inverse {
		inverter = -1.0
	}

	blockEnd := 1
	for blockSize := 2; blockSize <= n; blockSize *= 2 {
		deltaAngle := twoPi / float64(blockSize) * inverter
		s := math.Sin(0.5 * deltaAngle)
		alpha := 2.0 * s * s
		beta := math.Sin(deltaAngle)

		for i := 0; i < n; i += blockSize {
			angle := Complex{R: 1}

			for j := i; j < i+blockEnd; j++ {
				k := j + blockEnd

				tmp := Complex{
					R: angle.R*a[k].R - angle.I*a[k].I,
					I: angle.I*a[k].R + angle.R*a[k].I,
				}
				a[k] = a[j].Sub(tmp)
				a[j] = a[j].Add(tmp)

				if b != nil {
					tmp = Complex{
						R: angle.R*b[k].R - angle.I*b[k].I,
						I: angle.I*b[k].R + angle.R*b[k].I,
					}
					b[k] = b[j].Sub(tmp)
					b[j] = b[j].Add(tmp)
				}

				angle = angle.Sub(Complex{
					R: alpha*angle.R + beta*angle.I,
					I: alpha*angle.I - beta*angle.R,
				})
			}
		}
		blockEnd = blockSize
	}

	if inverse {
		fn := float64(n)
		for i := range a {
			a[i].R /= fn
		}
		for i := range b {
			b[i].R /= fn
		}
	}
}

// planCache is the single-slot cache behind FourierTransform: the plan for
// the most recently used size, replaced whenever the size changes.
var planCache struct {
	mu   sync.Mutex
	plan *Plan
}

func cachedPlan(n int) (*Plan, error) {
	planCache.mu.Lock()
	defer planCache.mu.Unlock()

	if planCache.plan != nil && planCache.plan.size == n {
		return planCache.plan, nil
	}
	plan, err := BuildPlan(n)
	if err != nil {
		return nil, err
	}
	planCache.plan = plan
	return plan, nil
}

// FourierTransform transforms n real samples using the cached plan for n.
// Interleaving different sizes from several goroutines is safe but rebuilds
// the table on every size change; long-lived callers should own a Plan.
func FourierTransform(n int, in []float64, out []Complex, inverse bool) error {
	plan, err := cachedPlan(n)
	if err != nil {
		return err
	}
	return plan.Transform(in, out, inverse)
}

// FourierTransformDual is the two-channel form of FourierTransform.
func FourierTransformDual(n int, inL []float64, outL []Complex, inR []float64, outR []Complex, inverse bool) error {
	plan, err := cachedPlan(n)
	if err != nil {
		return err
	}
	return plan.TransformDual(inL, outL, inR, outR, inverse)
}
