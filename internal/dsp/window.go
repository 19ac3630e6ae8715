// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// WindowFunc selects one of the supported analysis windows.
type WindowFunc int

// Enum for available window functions.
const (
	None WindowFunc = iota
	Triangle
	Hanning
	Hamming
	Welch
	Gaussian
	Blackman
	Parzen
	Bartlett
	Connes
	KaiserBessel
	BlackmanHarris
	Nuttall
	BlackmanNuttall
	FlatTop
)

const twoPi = 2.0 * math.Pi

// coefficientFunc computes the coefficient for sample index i given the
// normalisation denominator w = N-1.
type coefficientFunc func(i, w float64) float64

var windowNames = [...]string{
	None:            "None",
	Triangle:        "Triangle",
	Hanning:         "Hanning",
	Hamming:         "Hamming",
	Welch:           "Welch",
	Gaussian:        "Gaussian",
	Blackman:        "Blackman",
	Parzen:          "Parzen",
	Bartlett:        "Bartlett",
	Connes:          "Connes",
	KaiserBessel:    "KaiserBessel",
	BlackmanHarris:  "BlackmanHarris",
	Nuttall:         "Nuttall",
	BlackmanNuttall: "BlackmanNuttall",
	FlatTop:         "FlatTop",
}

// Nuttall, BlackmanNuttall and FlatTop divide every cosine term by w
// instead of dividing the cosine argument; cos(2πk·i) is 1 for integer i so
// these windows are nearly flat. BlackmanHarris uses 3π, not 3·2π, in its
// last term.
var windowTable = [...]coefficientFunc{
	None: func(i, w float64) float64 {
		return 1.0
	},
	Triangle: func(i, w float64) float64 {
		return 1.0 - math.Abs(1.0-2*i/w)
	},
	Hanning: func(i, w float64) float64 {
		return 0.5 * (1.0 - math.Cos(twoPi*i/w))
	},
	Hamming: func(i, w float64) float64 {
		return 0.54 - 0.46*math.Cos(twoPi*i/w)
	},
	Welch: func(i, w float64) float64 {
		return 1.0 - (i-0.5*(w-1))/(0.5*(w+1)*(w+1))
	},
	Gaussian: func(i, w float64) float64 {
		return math.Exp(-6.25 * math.Pi * i * i / (w * w))
	},
	Blackman: func(i, w float64) float64 {
		return 0.42 - 0.5*math.Cos(twoPi*i/w) + 0.08*math.Cos(2*twoPi*i/w)
	},
	Parzen: func(i, w float64) float64 {
		return 1.0 - math.Abs((i-0.5*w)/(0.5*(w+1)))
	},
	Bartlett: func(i, w float64) float64 {
		return 1.0 - math.Abs(i)/w
	},
	Connes: func(i, w float64) float64 {
		x := 1.0 - i*i/(w*w)
		return x * x
	},
	KaiserBessel: func(i, w float64) float64 {
		half := w / 2
		if i < 0 || i > half {
			return 0.0
		}
		r := math.Sqrt(1 - 2*i/w)
		return bessel0(half*r*r) / bessel0(half)
	},
	BlackmanHarris: func(i, w float64) float64 {
		return 0.35875 - 0.48829*math.Cos(twoPi*i/w) + 0.14128*math.Cos(2*twoPi*i/w) - 0.01168*math.Cos(3*math.Pi*i/w)
	},
	Nuttall: func(i, w float64) float64 {
		return 0.355768 - 0.487396*math.Cos(twoPi*i)/w + 0.144232*math.Cos(2*twoPi*i)/w - 0.012604*math.Cos(3*twoPi*i)/w
	},
	BlackmanNuttall: func(i, w float64) float64 {
		return 0.3635819 - 0.4891775*math.Cos(twoPi*i)/w + 0.1365995*math.Cos(2*twoPi*i)/w - 0.0106411*math.Cos(3*twoPi*i)/w
	},
	FlatTop: func(i, w float64) float64 {
		return 1.0 - 1.93*math.Cos(twoPi*i)/w + 1.29*math.Cos(2*twoPi*i)/w - 0.388*math.Cos(3*twoPi*i)/w + 0.032*math.Cos(4*twoPi*i)/w
	},
}

// Windows returns every supported window in enum order.
func Windows() []WindowFunc {
	out := make([]WindowFunc, len(windowTable))
	for i := range windowTable {
		out[i] = WindowFunc(i)
	}
	return out
}

// Valid reports whether wf names a supported window.
func (wf WindowFunc) Valid() bool {
	return wf >= 0 && int(wf) < len(windowTable)
}

func (wf WindowFunc) String() string {
	if !wf.Valid() {
		return fmt.Sprintf("WindowFunc(%d)", int(wf))
	}
	return windowNames[wf]
}

// ParseWindowFunc converts a string name (case-insensitive, dashes and
// underscores ignored) to a WindowFunc. Unknown names return Hanning and an
// error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
	switch key {
	case "hann":
		return Hanning, nil
	case "rectangular", "rect":
		return None, nil
	case "kaiser":
		return KaiserBessel, nil
	}
	for i, n := range windowNames {
		if strings.ToLower(n) == key {
			return WindowFunc(i), nil
		}
	}
	return Hanning, fmt.Errorf("unknown FFT window function name: '%s'", name)
}

// ApplyWindow returns the coefficient for sample index i of a window of
// length n, using w = n-1 as the normalisation denominator. Unsupported
// window types return 0. For n <= 1 most families divide by zero; callers
// that need finite values should go through NewWindowTable.
func ApplyWindow(i, n int, wf WindowFunc) float64 {
	if !wf.Valid() {
		return 0.0
	}
	return windowTable[wf](float64(i), float64(n-1))
}

// GetWindowValues returns the n coefficients of the window.
func GetWindowValues(n int, wf WindowFunc) []float64 {
	if n <= 0 {
		return nil
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = ApplyWindow(i, n, wf)
	}
	return values
}

// GetWindowSum returns the sum of the n coefficients, used to normalise
// spectral magnitudes.
func GetWindowSum(n int, wf WindowFunc) float64 {
	return floats.Sum(GetWindowValues(n, wf))
}

// WindowTable caches the coefficients and their sum for one (size, type)
// pair. It is read-only after construction.
type WindowTable struct {
	Type   WindowFunc
	Values []float64
	Sum    float64
}

// NewWindowTable generates the table for n samples. It fails with
// ErrDegenerateWindow if the coefficients sum to zero or a non-finite value
// (any n <= 1).
func NewWindowTable(n int, wf WindowFunc) (*WindowTable, error) {
	if !wf.Valid() {
		return nil, fmt.Errorf("unknown window type %d", int(wf))
	}
	if n <= 1 {
		return nil, fmt.Errorf("%w: window length %d", ErrDegenerateWindow, n)
	}
	values := GetWindowValues(n, wf)
	sum := floats.Sum(values)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: %s window of length %d sums to %v", ErrDegenerateWindow, wf, n, sum)
	}
	return &WindowTable{Type: wf, Values: values, Sum: sum}, nil
}

// Len returns the number of coefficients.
func (t *WindowTable) Len() int { return len(t.Values) }

// bessel0 approximates the zeroth-order modified Bessel function with the
// first two terms of its power series on top of a unit bias. Only the ratio
// bessel0(x)/bessel0(w/2) is ever used. Near i = w/2 both this ratio and the
// full-series ratio tend to zero and differ by at most a few percent in
// absolute terms; towards the window centre the shapes diverge more.
func bessel0(x float64) float64 {
	r := 1.0
	half := x / 2
	for l := range 2 {
		t := math.Pow(half, float64(2*l)) / float64(factorial(l))
		r += t * t
	}
	return r
}

func factorial(n int) uint64 {
	f := uint64(1)
	for i := 2; i <= n; i++ {
		f *= uint64(i)
	}
	return f
}
