// SPDX-License-Identifier: MIT
package analysis

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"consolefft/internal/dsp"
)

// binSine returns a sine of amplitude amp centred on bin of an n-point
// transform.
func binSine(frames, n, bin int, amp float64) []int16 {
	out := make([]int16, frames)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(n)))
	}
	return out
}

func TestAnalyzeMono(t *testing.T) {
	const n = 1024
	samples := binSine(2*n+100, n, 8, 16384)

	r, err := Analyze([][]int16{samples}, testSampleRate, n, dsp.Hanning, 3)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Windows != 2 {
		t.Errorf("Windows = %d, want 2 (trailing partial window ignored)", r.Windows)
	}
	if len(r.Channels) != 1 || r.Channels[0].Channel != "mono" {
		t.Fatalf("channels = %+v", r.Channels)
	}

	peaks := r.Channels[0].Peaks
	if len(peaks) != 3 {
		t.Fatalf("got %d peaks, want 3", len(peaks))
	}
	p := peaks[0]
	if p.Bin != 8 {
		t.Fatalf("strongest bin = %d, want 8", p.Bin)
	}
	if want := 8 * testSampleRate / float64(n); math.Abs(p.Frequency-want) > 1e-9 {
		t.Errorf("Frequency = %v, want %v", p.Frequency, want)
	}
	// Half scale is -6.02 dBFS.
	if math.Abs(p.Level+6.02) > 0.05 {
		t.Errorf("Level = %.3f dBFS, want -6.02", p.Level)
	}
	if got, want := p.Weighted, p.Level+dsp.AWeighting(p.Frequency); got != want {
		t.Errorf("Weighted = %v, want %v", got, want)
	}
	for _, q := range peaks[1:] {
		if q.Bin != 7 && q.Bin != 9 {
			t.Errorf("runner-up bin %d, want a Hann sidelobe neighbour", q.Bin)
		}
		if q.Power > p.Power {
			t.Error("peaks not sorted strongest first")
		}
	}
}

func TestAnalyzeStereo(t *testing.T) {
	const n = 256
	left := binSine(4*n, n, 8, 16384)
	right := binSine(4*n, n, 32, 8192)

	r, err := Analyze([][]int16{left, right}, testSampleRate, n, dsp.Hanning, 1)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(r.Channels) != 2 || r.Channels[0].Channel != "left" || r.Channels[1].Channel != "right" {
		t.Fatalf("channels = %+v", r.Channels)
	}
	if got := r.Channels[0].Peaks[0].Bin; got != 8 {
		t.Errorf("left peak bin = %d, want 8", got)
	}
	if got := r.Channels[1].Peaks[0].Bin; got != 32 {
		t.Errorf("right peak bin = %d, want 32", got)
	}
	// Quarter scale is -12.04 dBFS.
	if lvl := r.Channels[1].Peaks[0].Level; math.Abs(lvl+12.04) > 0.05 {
		t.Errorf("right level = %.3f dBFS, want -12.04", lvl)
	}

	// The dual transform must agree with transforming each channel alone.
	mono, err := Analyze([][]int16{right}, testSampleRate, n, dsp.Hanning, 1)
	if err != nil {
		t.Fatal(err)
	}
	for b, v := range mono.Channels[0].Spectrum {
		if d := math.Abs(v - r.Channels[1].Spectrum[b]); d > 1e-6*math.Max(1, v) {
			t.Fatalf("bin %d: dual %v vs single %v", b, r.Channels[1].Spectrum[b], v)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		channels [][]int16
		rate     float64
		size     int
		want     error
	}{
		{"no channels", nil, testSampleRate, 64, ErrInvalidOptions},
		{"zero rate", [][]int16{make([]int16, 128)}, 0, 64, ErrInvalidOptions},
		{"size not power of two", [][]int16{make([]int16, 128)}, testSampleRate, 100, dsp.ErrInvalidSize},
		{"too short", [][]int16{make([]int16, 63)}, testSampleRate, 64, ErrInvalidOptions},
		{"short second channel", [][]int16{make([]int16, 128), make([]int16, 10)}, testSampleRate, 64, ErrInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Analyze(tt.channels, tt.rate, tt.size, dsp.Hanning, 5); !errors.Is(err, tt.want) {
				t.Errorf("Analyze = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReportWriteTo(t *testing.T) {
	r, err := Analyze([][]int16{binSine(512, 256, 8, 16384)}, testSampleRate, 256, dsp.Hanning, 2)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	out := buf.String()
	for _, want := range []string{"256 points", "Hanning window", "Channel: mono", "Frequency (Hz)", "1378.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
