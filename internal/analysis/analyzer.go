// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"consolefft/internal/dsp"
	"consolefft/internal/log"
)

// Mode selects what a completed window feeds: the transform and spectral
// history, or the waveform history.
type Mode int

const (
	ModeSpectrum Mode = iota
	ModeWaveform
)

func (m Mode) String() string {
	switch m {
	case ModeSpectrum:
		return "fft"
	case ModeWaveform:
		return "waveform"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name, so frames carry "fft" or
// "waveform" in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode converts "fft"/"spectrum" or "waveform"/"wave" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fft", "spectrum":
		return ModeSpectrum, nil
	case "waveform", "wave":
		return ModeWaveform, nil
	}
	return ModeSpectrum, fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, s)
}

// Options configures an Analyzer.
type Options struct {
	Size          int            // Transform size N, a power of two >= MinMapperSize.
	Window        dsp.WindowFunc // Analysis window.
	HistoryDepth  int            // Number of frames averaged, D.
	Normalization float64        // Mapper divisor K. Zero selects DefaultNormalization.
	SampleRate    float64        // Capture rate in Hz.
	Mode          Mode           // Initial mode.
	Metrics       *Metrics       // Optional collectors.
}

// Frame is a snapshot published after every completed window.
type Frame struct {
	Seq      uint64    `json:"seq"`
	Mode     Mode      `json:"mode"`
	Spectrum []float64 `json:"spectrum"` // Averaged power, N/2 bins.
	Waveform []float64 `json:"waveform"` // Newest waveform frame, N samples.
	Time     time.Time `json:"time"`
}

// Analyzer buffers incoming PCM into N-sample windows, transforms each
// completed window and keeps depth-D histories of spectra and waveforms.
//
// Thread Safety:
//   - PushSamples* (the sampler side) takes the write lock per call.
//   - Readers (Averages, Waveform, AverageAt ...) take the read lock and
//     always receive copies, never the live history slots.
//   - Completed frames are also published on subscriber channels with a
//     non-blocking send; a slow subscriber misses frames rather than
//     stalling the capture callback.
type Analyzer struct {
	mu sync.RWMutex

	plan       *dsp.Plan
	window     *dsp.WindowTable
	mapper     *Mapper
	sampleRate float64
	metrics    *Metrics

	spectrum *History // D x N/2 power
	waveform *History // D x N samples

	mode    Mode
	pending []float64 // window being filled
	fill    int
	bins    []dsp.Complex
	power   []float64
	seq     uint64

	subs   []chan Frame
	closed bool
}

// NewAnalyzer validates opts and allocates every buffer used on the hot
// path.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.Size < MinMapperSize {
		return nil, fmt.Errorf("%w: transform size %d below %d", dsp.ErrInvalidSize, opts.Size, MinMapperSize)
	}
	plan, err := dsp.BuildPlan(opts.Size)
	if err != nil {
		return nil, err
	}
	if !(opts.SampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidOptions, opts.SampleRate)
	}
	if opts.Mode != ModeSpectrum && opts.Mode != ModeWaveform {
		return nil, fmt.Errorf("%w: mode %d", ErrInvalidOptions, int(opts.Mode))
	}
	window, err := dsp.NewWindowTable(opts.Size, opts.Window)
	if err != nil {
		return nil, err
	}
	norm := opts.Normalization
	if norm == 0 {
		norm = DefaultNormalization
	}
	mapper, err := NewMapper(opts.Size, window.Sum, norm)
	if err != nil {
		return nil, err
	}
	spectrum, err := NewHistory(opts.HistoryDepth, opts.Size/2)
	if err != nil {
		return nil, err
	}
	waveform, err := NewHistory(opts.HistoryDepth, opts.Size)
	if err != nil {
		return nil, err
	}

	log.Infof("Analyzer: Initializing (Size: %d, Window: %s, History: %d, SampleRate: %.1f Hz, Mode: %s)",
		opts.Size, opts.Window, opts.HistoryDepth, opts.SampleRate, opts.Mode)

	return &Analyzer{
		plan:       plan,
		window:     window,
		mapper:     mapper,
		sampleRate: opts.SampleRate,
		metrics:    opts.Metrics,
		spectrum:   spectrum,
		waveform:   waveform,
		mode:       opts.Mode,
		pending:    make([]float64, opts.Size),
		bins:       make([]dsp.Complex, opts.Size),
		power:      make([]float64, opts.Size/2),
	}, nil
}

// PushSamples appends 16-bit samples to the pending window. Every time the
// window fills it is completed and filling continues from the start with
// the remaining samples.
func (a *Analyzer) PushSamples(samples []int16) {
	push(a, samples)
}

// PushSamples8 is PushSamples for 8-bit capture. Sample values are widened
// without rescaling.
func (a *Analyzer) PushSamples8(samples []int8) {
	push(a, samples)
}

func push[T int8 | int16](a *Analyzer, samples []T) {
	if len(samples) == 0 {
		return
	}
	a.metrics.addSamples(len(samples))

	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.pending)
	coeffs := a.window.Values
	windowed := a.mode == ModeSpectrum
	for _, s := range samples {
		v := float64(s)
		if windowed {
			v *= coeffs[a.fill]
		}
		a.pending[a.fill] = v
		a.fill++
		if a.fill == n {
			a.complete()
			a.fill = 0
		}
	}
}

// complete processes a full pending window. Caller holds the write lock.
func (a *Analyzer) complete() {
	switch a.mode {
	case ModeSpectrum:
		start := time.Now()
		// Buffers are sized from the plan in NewAnalyzer.
		_ = a.plan.Forward(a.pending, a.bins)
		for b := range a.power {
			a.power[b] = a.bins[b].Power()
		}
		a.spectrum.Push(a.power)
		a.metrics.observeTransform(time.Since(start))
	case ModeWaveform:
		a.waveform.Push(a.pending)
	}
	a.seq++
	a.publish()
}

// publish sends a frame to every subscriber that has room. Caller holds the
// write lock.
func (a *Analyzer) publish() {
	if len(a.subs) == 0 {
		return
	}
	frame := Frame{
		Seq:      a.seq,
		Mode:     a.mode,
		Spectrum: make([]float64, a.spectrum.Width()),
		Waveform: make([]float64, a.waveform.Width()),
		Time:     time.Now(),
	}
	a.spectrum.AverageInto(frame.Spectrum)
	a.waveform.Latest(frame.Waveform)

	for _, ch := range a.subs {
		select {
		case ch <- frame:
		default:
			a.metrics.frameDropped()
		}
	}
}

// Subscribe returns a channel receiving every completed frame. Frames are
// shared between subscribers and must be treated as read-only. The channel
// is closed by Close.
func (a *Analyzer) Subscribe(buffer int) <-chan Frame {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Frame, buffer)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		close(ch)
		return ch
	}
	a.subs = append(a.subs, ch)
	return ch
}

// SetMode switches between spectrum and waveform accumulation. A partially
// filled window is discarded because its samples were stored under the
// previous mode's windowing.
func (a *Analyzer) SetMode(m Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m == a.mode {
		return
	}
	a.mode = m
	a.fill = 0
	log.Debugf("Analyzer: Mode set to %s", m)
}

// Mode returns the current mode.
func (a *Analyzer) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// Averages copies the averaged power of every bin into dst, allocating a
// new slice when dst is shorter than Bins.
func (a *Analyzer) Averages(dst []float64) []float64 {
	if len(dst) < len(a.power) {
		dst = make([]float64, len(a.power))
	}
	dst = dst[:len(a.power)]

	a.mu.RLock()
	defer a.mu.RUnlock()
	a.spectrum.AverageInto(dst)
	return dst
}

// AverageAt returns the averaged power of one bin, or 0 for an index outside
// [0, Bins).
func (a *Analyzer) AverageAt(bin int) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.spectrum.Average(bin)
}

// Waveform copies the newest waveform frame into dst, allocating when dst
// is shorter than Size.
func (a *Analyzer) Waveform(dst []float64) []float64 {
	if len(dst) < len(a.pending) {
		dst = make([]float64, len(a.pending))
	}
	dst = dst[:len(a.pending)]

	a.mu.RLock()
	defer a.mu.RUnlock()
	a.waveform.Latest(dst)
	return dst
}

// WaveformAverageAt returns sample i averaged over the waveform history.
func (a *Analyzer) WaveformAverageAt(i int) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.waveform.Average(i)
}

// Transforms returns the number of windows completed so far in either mode.
func (a *Analyzer) Transforms() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.seq
}

// FrequencyForBin returns bin·sampleRate/N, or 0 outside [0, Bins).
func (a *Analyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.power) {
		return 0.0
	}
	return float64(bin) * (a.sampleRate / float64(len(a.pending)))
}

// Bins returns N/2. Immutable after creation, no lock needed.
func (a *Analyzer) Bins() int { return len(a.power) }

// Size returns N.
func (a *Analyzer) Size() int { return len(a.pending) }

// SampleRate returns the configured sample rate (Hz).
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// WindowSum returns the sum of the analysis window coefficients.
func (a *Analyzer) WindowSum() float64 { return a.window.Sum }

// Window returns the analysis window type.
func (a *Analyzer) Window() dsp.WindowFunc { return a.window.Type }

// Mapper returns the coordinate mapper for this analyzer's size and window.
func (a *Analyzer) Mapper() *Mapper { return a.mapper }

// Close closes every subscriber channel. Samples pushed afterwards are
// still accumulated but no longer published.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for _, ch := range a.subs {
		close(ch)
	}
	a.subs = nil
	log.Infof("Analyzer: Closed after %d windows", a.seq)
	return nil
}
