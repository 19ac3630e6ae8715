// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"

	"consolefft/internal/dsp"
)

// fullScale16 is the magnitude of a full-scale 16-bit sample.
const fullScale16 = 32768

// Peak is one of the strongest bins of an averaged spectrum.
type Peak struct {
	Bin       int
	Frequency float64 // Hz
	Power     float64 // Averaged |X[k]|²
	Level     float64 // Sine amplitude in dBFS
	Weighted  float64 // Level plus A-weighting, dB(A)
}

// ChannelReport holds the peaks of one channel.
type ChannelReport struct {
	Channel  string
	Spectrum []float64 // Power averaged over every window, N/2 bins.
	Peaks    []Peak
}

// Report summarises an offline analysis.
type Report struct {
	Size       int
	Window     dsp.WindowFunc
	SampleRate float64
	Windows    int
	Channels   []ChannelReport
}

// Analyze averages the power spectrum of consecutive, non-overlapping
// size-sample windows of each channel and returns the top strongest bins
// per channel. One channel uses the forward transform; two channels use the
// dual transform. Extra channels and a trailing partial window are
// ignored.
func Analyze(channels [][]int16, sampleRate float64, size int, wf dsp.WindowFunc, top int) (*Report, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidOptions)
	}
	if len(channels) > 2 {
		channels = channels[:2]
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidOptions, sampleRate)
	}
	plan, err := dsp.BuildPlan(size)
	if err != nil {
		return nil, err
	}
	table, err := dsp.NewWindowTable(size, wf)
	if err != nil {
		return nil, err
	}

	frames := len(channels[0])
	for _, ch := range channels[1:] {
		frames = min(frames, len(ch))
	}
	windows := frames / size
	if windows == 0 {
		return nil, fmt.Errorf("%w: %d frames is shorter than one %d-point window", ErrInvalidOptions, frames, size)
	}

	bins := size / 2
	sums := make([][]float64, len(channels))
	ins := make([][]float64, len(channels))
	outs := make([][]dsp.Complex, len(channels))
	for c := range channels {
		sums[c] = make([]float64, bins)
		ins[c] = make([]float64, size)
		outs[c] = make([]dsp.Complex, size)
	}

	for w := range windows {
		offset := w * size
		for c, ch := range channels {
			for i, coeff := range table.Values {
				ins[c][i] = float64(ch[offset+i]) * coeff
			}
		}
		if len(channels) == 2 {
			err = plan.TransformDual(ins[0], outs[0], ins[1], outs[1], false)
		} else {
			err = plan.Forward(ins[0], outs[0])
		}
		if err != nil {
			return nil, err
		}
		for c := range channels {
			for b := range sums[c] {
				sums[c][b] += outs[c][b].Power()
			}
		}
	}

	names := []string{"mono"}
	if len(channels) == 2 {
		names = []string{"left", "right"}
	}
	report := &Report{
		Size:       size,
		Window:     wf,
		SampleRate: sampleRate,
		Windows:    windows,
	}
	for c := range channels {
		floats.Scale(1/float64(windows), sums[c])
		report.Channels = append(report.Channels, ChannelReport{
			Channel:  names[c],
			Spectrum: sums[c],
			Peaks:    topPeaks(sums[c], sampleRate, size, table.Sum, top),
		})
	}
	return report, nil
}

// topPeaks returns the n strongest bins above DC, strongest first.
func topPeaks(avg []float64, sampleRate float64, size int, windowSum float64, n int) []Peak {
	if n <= 0 || len(avg) < 2 {
		return nil
	}
	sorted := make([]float64, len(avg)-1)
	copy(sorted, avg[1:])
	inds := make([]int, len(sorted))
	floats.Argsort(sorted, inds)

	n = min(n, len(inds))
	peaks := make([]Peak, 0, n)
	for i := len(inds) - 1; i >= len(inds)-n; i-- {
		bin := inds[i] + 1
		freq := float64(bin) * sampleRate / float64(size)
		level := amplitudeDB(avg[bin], windowSum)
		peaks = append(peaks, Peak{
			Bin:       bin,
			Frequency: freq,
			Power:     avg[bin],
			Level:     level,
			Weighted:  level + dsp.AWeighting(freq),
		})
	}
	return peaks
}

// amplitudeDB converts a bin power to the dBFS level of the sine that
// would produce it: |X| = A·windowSum/2 for a bin-centred sine of
// amplitude A.
func amplitudeDB(power, windowSum float64) float64 {
	amplitude := 2 * math.Sqrt(power) / math.Abs(windowSum) / fullScale16
	return 20 * math.Log10(amplitude)
}

// WriteTo prints the report as a table.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "Transform: %d points, %s window, %.0f Hz, %d windows (%.1f Hz/bin)\n",
		r.Size, r.Window, r.SampleRate, r.Windows, r.SampleRate/float64(r.Size))

	for _, ch := range r.Channels {
		fmt.Fprintf(cw, "\nChannel: %s\n", ch.Channel)
		tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tBin\tFrequency (Hz)\tLevel (dBFS)\tA-weighted (dB)\t")
		for i, p := range ch.Peaks {
			fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.1f\t%.1f\t\n", i+1, p.Bin, p.Frequency, p.Level, p.Weighted)
		}
		if err := tw.Flush(); err != nil {
			return cw.n, err
		}
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
