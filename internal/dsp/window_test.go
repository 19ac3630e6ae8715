// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

func ones(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

func TestWindowMatchesReference(t *testing.T) {
	const n = 512

	tests := []struct {
		wf  WindowFunc
		ref func([]float64) []float64
	}{
		{None, window.Rectangular},
		{Hanning, window.Hann},
		{Hamming, window.Hamming},
		{Blackman, window.Blackman},
	}

	for _, tt := range tests {
		t.Run(tt.wf.String(), func(t *testing.T) {
			got := GetWindowValues(n, tt.wf)
			want := tt.ref(ones(n))
			if !floats.EqualApprox(got, want, 1e-12) {
				t.Errorf("%s coefficients differ from reference window", tt.wf)
			}
		})
	}
}

func TestWindowEdges(t *testing.T) {
	const n = 1024

	if v := ApplyWindow(0, n, Hanning); math.Abs(v) > 1e-12 {
		t.Errorf("Hanning[0] = %g, want 0", v)
	}
	if v := ApplyWindow(n-1, n, Hanning); math.Abs(v) > 1e-12 {
		t.Errorf("Hanning[N-1] = %g, want 0", v)
	}
	if v := ApplyWindow(0, n, Triangle); math.Abs(v) > 1e-12 {
		t.Errorf("Triangle[0] = %g, want 0", v)
	}
	if v := ApplyWindow(0, n, KaiserBessel); math.Abs(v-1) > 1e-12 {
		t.Errorf("KaiserBessel[0] = %g, want 1", v)
	}
	if v := ApplyWindow(n-1, n, KaiserBessel); v != 0 {
		t.Errorf("KaiserBessel past half width = %g, want 0", v)
	}
	if v := ApplyWindow(3, n, WindowFunc(99)); v != 0 {
		t.Errorf("unsupported window = %g, want 0", v)
	}
}

// TestWindowCoefficients pins individual coefficients of every family.
// Bartlett is one-sided (1 at i = 0), BlackmanHarris uses 3π for its last
// term, and Nuttall, BlackmanNuttall and FlatTop divide each cosine term
// by w, which leaves them nearly constant at integer i.
func TestWindowCoefficients(t *testing.T) {
	tests := []struct {
		wf   WindowFunc
		i, n int
		want float64
	}{
		{None, 3, 8, 1.0},
		{None, 5, 16, 1.0},
		{Triangle, 3, 8, 0.8571428571428571},
		{Triangle, 5, 16, 0.6666666666666666},
		{Hanning, 3, 8, 0.9504844339512095},
		{Hanning, 5, 16, 0.75},
		{Hamming, 3, 8, 0.9544456792351128},
		{Hamming, 5, 16, 0.77},
		{Welch, 3, 8, 1.0},
		{Welch, 5, 16, 1.015625},
		{Gaussian, 3, 8, 0.027148862290943675},
		{Gaussian, 5, 16, 0.11285386074643211},
		{Blackman, 3, 8, 0.9203636180999081},
		{Blackman, 5, 16, 0.63},
		{Parzen, 3, 8, 0.875},
		{Parzen, 5, 16, 0.6875},
		{Bartlett, 0, 8, 1.0},
		{Bartlett, 3, 8, 0.5714285714285714},
		{Bartlett, 5, 16, 0.6666666666666667},
		{Connes, 3, 8, 0.6663890045814245},
		{Connes, 5, 16, 0.7901234567901234},
		{KaiserBessel, 3, 8, 0.17610710607621008},
		{KaiserBessel, 5, 16, 0.022234389972035914},
		{BlackmanHarris, 3, 8, 0.894053088600384},
		{BlackmanHarris, 5, 16, 0.543935},
		{Nuttall, 3, 8, 0.30494399999999994},
		{Nuttall, 5, 16, 0.33205013333333333},
		{BlackmanNuttall, 3, 8, 0.3116934571428571},
		{BlackmanNuttall, 5, 16, 0.3393672933333333},
		{FlatTop, 3, 8, 0.8577142857142858},
		{FlatTop, 5, 16, 0.9335999999999999},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d_of_%d", tt.wf, tt.i, tt.n), func(t *testing.T) {
			if got := ApplyWindow(tt.i, tt.n, tt.wf); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ApplyWindow(%d, %d, %s) = %.17g, want %.17g", tt.i, tt.n, tt.wf, got, tt.want)
			}
		})
	}

	// Every family must be covered above.
	seen := make(map[WindowFunc]bool)
	for _, tt := range tests {
		seen[tt.wf] = true
	}
	for _, wf := range Windows() {
		if !seen[wf] {
			t.Errorf("no pinned coefficients for %s", wf)
		}
	}
}

func TestEveryWindowIsFinite(t *testing.T) {
	for _, n := range []int{32, 1024, 32768} {
		for _, wf := range Windows() {
			table, err := NewWindowTable(n, wf)
			if err != nil {
				t.Errorf("NewWindowTable(%d, %s): %v", n, wf, err)
				continue
			}
			if table.Len() != n {
				t.Errorf("%s: Len() = %d, want %d", wf, table.Len(), n)
			}
			for i, v := range table.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s[%d] of %d is %v", wf, i, n, v)
				}
			}
			if math.Abs(table.Sum-GetWindowSum(n, wf)) > 1e-9 {
				t.Errorf("%s: table sum %f != GetWindowSum %f", wf, table.Sum, GetWindowSum(n, wf))
			}
		}
	}
}

func TestWindowSum(t *testing.T) {
	if got := GetWindowSum(1024, None); got != 1024 {
		t.Errorf("None sum = %f, want 1024", got)
	}
	// Hann coefficients average to one half over a symmetric window.
	if got := GetWindowSum(1024, Hanning); math.Abs(got-511.5) > 1e-9 {
		t.Errorf("Hanning sum = %f, want 511.5", got)
	}
}

func TestDegenerateWindow(t *testing.T) {
	tests := []struct {
		name string
		n    int
		wf   WindowFunc
	}{
		{"single sample", 1, Hanning},
		{"empty", 0, None},
		{"two point hann", 2, Hanning},
		{"two point triangle", 2, Triangle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindowTable(tt.n, tt.wf)
			if !errors.Is(err, ErrDegenerateWindow) {
				t.Errorf("NewWindowTable(%d, %s) error = %v, want ErrDegenerateWindow", tt.n, tt.wf, err)
			}
		})
	}

	if _, err := NewWindowTable(64, WindowFunc(-1)); err == nil {
		t.Error("expected error for unknown window type")
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"Hanning", Hanning, false},
		{"hann", Hanning, false},
		{"BLACKMAN-HARRIS", BlackmanHarris, false},
		{"blackman_nuttall", BlackmanNuttall, false},
		{"flat top", FlatTop, false},
		{"rectangular", None, false},
		{"kaiser", KaiserBessel, false},
		{"none", None, false},
		{"cosine", Hanning, true},
		{"", Hanning, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindowFunc(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	// Every name round-trips.
	for _, wf := range Windows() {
		got, err := ParseWindowFunc(wf.String())
		if err != nil || got != wf {
			t.Errorf("ParseWindowFunc(%q) = %s, %v", wf.String(), got, err)
		}
	}
}

func BenchmarkNewWindowTable(b *testing.B) {
	for b.Loop() {
		_, _ = NewWindowTable(4096, Hanning)
	}
}
