// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
)

// Complex is a minimal complex number value. All operations return new
// values; a Complex is never modified in place by its methods.
type Complex struct {
	R float64
	I float64
}

// Real returns r + 0i.
func Real(r float64) Complex {
	return Complex{R: r}
}

// FromReals converts a slice of real values into complex values with zero
// imaginary parts.
func FromReals(values []float64) []Complex {
	out := make([]Complex, len(values))
	for i, v := range values {
		out[i] = Complex{R: v}
	}
	return out
}

func (c Complex) Add(o Complex) Complex { return Complex{c.R + o.R, c.I + o.I} }
func (c Complex) Sub(o Complex) Complex { return Complex{c.R - o.R, c.I - o.I} }

func (c Complex) Mul(o Complex) Complex {
	return Complex{c.R*o.R - c.I*o.I, c.I*o.R + o.I*c.R}
}

// Div divides by another complex number. Division by 0+0i yields NaN or Inf
// components, as with float64 division.
func (c Complex) Div(o Complex) Complex {
	d := o.Power()
	return Complex{(c.R*o.R + c.I*o.I) / d, (c.I*o.R - c.R*o.I) / d}
}

func (c Complex) AddScalar(s float64) Complex { return Complex{c.R + s, c.I} }
func (c Complex) SubScalar(s float64) Complex { return Complex{c.R - s, c.I} }
func (c Complex) MulScalar(s float64) Complex { return Complex{c.R * s, c.I * s} }
func (c Complex) DivScalar(s float64) Complex { return Complex{c.R / s, c.I / s} }

// ScalarAdd returns s + c.
func ScalarAdd(s float64, c Complex) Complex { return Complex{s + c.R, c.I} }

// ScalarSub returns s - c.
func ScalarSub(s float64, c Complex) Complex { return Complex{s - c.R, -c.I} }

// ScalarMul returns s * c.
func ScalarMul(s float64, c Complex) Complex { return Complex{s * c.R, s * c.I} }

// ScalarDiv returns s / c.
func ScalarDiv(s float64, c Complex) Complex { return Real(s).Div(c) }

func (c Complex) Conjugate() Complex { return Complex{c.R, -c.I} }

// Power returns R² + I².
func (c Complex) Power() float64 { return c.R*c.R + c.I*c.I }

// Magnitude returns √Power.
func (c Complex) Magnitude() float64 { return math.Sqrt(c.Power()) }

// Abs is an alias of Magnitude.
func (c Complex) Abs() float64 { return c.Magnitude() }

// PowerRoot is an alias of Magnitude.
func (c Complex) PowerRoot() float64 { return c.Magnitude() }

// Power2 returns |R| + |I|, a cheaper magnitude estimate.
func (c Complex) Power2() float64 { return math.Abs(c.R) + math.Abs(c.I) }

// Power2Root returns √Power2.
func (c Complex) Power2Root() float64 { return math.Sqrt(c.Power2()) }

// Pow raises c to a non-negative integer power by repeated multiplication.
// Pow(c, 0) is 1+0i. Negative exponents return ErrUnsupported.
func (c Complex) Pow(n int) (Complex, error) {
	if n < 0 {
		return Complex{}, fmt.Errorf("%w: negative exponent %d", ErrUnsupported, n)
	}
	r := Complex{R: 1}
	for range n {
		r = r.Mul(c)
	}
	return r, nil
}

// PowComplex always fails: complex exponents are not implemented.
func (c Complex) PowComplex(Complex) (Complex, error) {
	return Complex{}, fmt.Errorf("%w: complex exponent", ErrUnsupported)
}

// RealPow returns base raised to the complex exponent e, for base > 0.
func RealPow(base float64, e Complex) Complex {
	ab := math.Pow(base, e.R)
	ln := math.Log(base)
	return Complex{ab * math.Cos(e.I*ln), ab * math.Sin(e.I*ln)}
}

func (c Complex) String() string {
	return fmt.Sprintf("%.2f + %.2fi", c.R, c.I)
}
