// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"consolefft/internal/dsp"
	"consolefft/pkg/utils"
)

const (
	testSize       = 1024
	testSampleRate = 44100.0
	testDepth      = 4
)

func newTestAnalyzer(t *testing.T, mutate func(*Options)) *Analyzer {
	t.Helper()
	opts := Options{
		Size:         testSize,
		Window:       dsp.Hanning,
		HistoryDepth: testDepth,
		SampleRate:   testSampleRate,
	}
	if mutate != nil {
		mutate(&opts)
	}
	a, err := NewAnalyzer(opts)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

// pushChunked feeds samples in odd-sized chunks, the way a capture callback
// would.
func pushChunked(a *Analyzer, samples []int16, chunk int) {
	for len(samples) > 0 {
		n := min(chunk, len(samples))
		a.PushSamples(samples[:n])
		samples = samples[n:]
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"not power of two", func(o *Options) { o.Size = 1000 }, dsp.ErrInvalidSize},
		{"too small", func(o *Options) { o.Size = 4 }, dsp.ErrInvalidSize},
		{"zero depth", func(o *Options) { o.HistoryDepth = 0 }, ErrInvalidOptions},
		{"zero sample rate", func(o *Options) { o.SampleRate = 0 }, ErrInvalidOptions},
		{"negative normalization", func(o *Options) { o.Normalization = -10 }, ErrInvalidOptions},
		{"unknown mode", func(o *Options) { o.Mode = Mode(7) }, ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Size: testSize, Window: dsp.Hanning, HistoryDepth: testDepth, SampleRate: testSampleRate}
			tt.mutate(&opts)
			if _, err := NewAnalyzer(opts); !errors.Is(err, tt.want) {
				t.Errorf("NewAnalyzer error = %v, want %v", err, tt.want)
			}
		})
	}

	opts := Options{Size: testSize, Window: dsp.WindowFunc(42), HistoryDepth: testDepth, SampleRate: testSampleRate}
	if _, err := NewAnalyzer(opts); err == nil {
		t.Error("expected error for unknown window")
	}
}

func TestAnalyzerAccessors(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	if a.Size() != testSize || a.Bins() != testSize/2 {
		t.Errorf("Size/Bins = %d/%d", a.Size(), a.Bins())
	}
	if a.SampleRate() != testSampleRate || a.Window() != dsp.Hanning {
		t.Error("unexpected sample rate or window")
	}
	if a.Mapper().Normalization() != DefaultNormalization {
		t.Errorf("default normalization = %f", a.Mapper().Normalization())
	}
	if a.WindowSum() != dsp.GetWindowSum(testSize, dsp.Hanning) {
		t.Error("WindowSum does not match the window library")
	}
	if got := a.FrequencyForBin(64); got != 64*testSampleRate/testSize {
		t.Errorf("FrequencyForBin(64) = %f", got)
	}
	if a.FrequencyForBin(-1) != 0 || a.FrequencyForBin(testSize/2) != 0 {
		t.Error("out of range bins should map to 0 Hz")
	}
}

func TestAnalyzerSpectrumPeak(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	const bin = 64
	freq := float64(bin) * testSampleRate / testSize
	samples := utils.GenerateSineWave(testSize*testDepth, testSampleRate, freq)

	pushChunked(a, samples, 333)

	if got := a.Transforms(); got != testDepth {
		t.Fatalf("Transforms() = %d, want %d", got, testDepth)
	}
	avg := a.Averages(nil)
	if len(avg) != testSize/2 {
		t.Fatalf("len(Averages) = %d", len(avg))
	}
	if peak := utils.FindPeakBin(avg, 0, len(avg)-1); peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if a.AverageAt(bin) != avg[bin] {
		t.Errorf("AverageAt(%d) = %f, Averages[%d] = %f", bin, a.AverageAt(bin), bin, avg[bin])
	}
}

func TestAnalyzerCarriesRemainder(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	samples := utils.GenerateSineWave(2*testSize, testSampleRate, 440)

	a.PushSamples(samples[:1500])
	if a.Transforms() != 1 {
		t.Fatalf("after 1500 samples Transforms() = %d, want 1", a.Transforms())
	}
	a.PushSamples(samples[1500:2047])
	if a.Transforms() != 1 {
		t.Fatalf("after 2047 samples Transforms() = %d, want 1", a.Transforms())
	}
	a.PushSamples(samples[2047:])
	if a.Transforms() != 2 {
		t.Fatalf("after 2048 samples Transforms() = %d, want 2", a.Transforms())
	}
}

func TestAnalyzerWaveformIsRaw(t *testing.T) {
	a := newTestAnalyzer(t, func(o *Options) { o.Mode = ModeWaveform })
	samples := make([]int16, testSize)
	for i := range samples {
		samples[i] = int16(i - testSize/2)
	}
	a.PushSamples(samples)

	wave := a.Waveform(nil)
	for i, s := range samples {
		if wave[i] != float64(s) {
			t.Fatalf("Waveform[%d] = %f, want %d", i, wave[i], s)
		}
	}
	// Spectrum history untouched in waveform mode.
	if a.AverageAt(10) != 0 {
		t.Error("waveform mode should not feed the spectral history")
	}
	if got := a.WaveformAverageAt(0); got != float64(samples[0])/testDepth {
		t.Errorf("WaveformAverageAt(0) = %f, want %f", got, float64(samples[0])/testDepth)
	}
}

func TestAnalyzerPushSamples8(t *testing.T) {
	a := newTestAnalyzer(t, func(o *Options) { o.Mode = ModeWaveform })
	samples := make([]int8, testSize)
	for i := range samples {
		samples[i] = int8(i % 100)
	}
	a.PushSamples8(samples)

	wave := a.Waveform(make([]float64, testSize))
	if wave[99] != 99 || wave[100] != 0 {
		t.Errorf("8-bit samples not widened by value: %f, %f", wave[99], wave[100])
	}
}

func TestAnalyzerSetModeDiscardsPartialWindow(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	samples := utils.GenerateSineWave(testSize, testSampleRate, 440)

	a.PushSamples(samples[:testSize/2])
	a.SetMode(ModeWaveform)
	if a.Mode() != ModeWaveform {
		t.Fatalf("Mode() = %s", a.Mode())
	}
	a.PushSamples(samples[testSize/2:])
	if a.Transforms() != 0 {
		t.Fatalf("partial window survived the mode switch")
	}
	a.PushSamples(samples[:testSize/2])
	if a.Transforms() != 1 {
		t.Fatalf("Transforms() = %d, want 1", a.Transforms())
	}
}

func TestAnalyzerSubscribe(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	a := newTestAnalyzer(t, func(o *Options) { o.Metrics = metrics })

	frames := a.Subscribe(1)
	samples := utils.GenerateSineWave(3*testSize, testSampleRate, 1000)
	a.PushSamples(samples)

	f := <-frames
	if f.Seq != 1 || f.Mode != ModeSpectrum {
		t.Errorf("first frame = seq %d mode %s", f.Seq, f.Mode)
	}
	if len(f.Spectrum) != testSize/2 || len(f.Waveform) != testSize {
		t.Errorf("frame lengths = %d/%d", len(f.Spectrum), len(f.Waveform))
	}

	if got := testutil.ToFloat64(metrics.framesDropped); got != 2 {
		t.Errorf("frames dropped = %f, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.transforms); got != 3 {
		t.Errorf("transforms = %f, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.samples); got != 3*testSize {
		t.Errorf("samples = %f, want %d", got, 3*testSize)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-frames; ok {
		t.Error("expected subscriber channel to be closed")
	}
	if _, ok := <-a.Subscribe(4); ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeSpectrum, ModeWaveform} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %s, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("oscilloscope"); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("ParseMode(oscilloscope) error = %v", err)
	}
	text, _ := ModeWaveform.MarshalText()
	if string(text) != "waveform" {
		t.Errorf("MarshalText = %q", text)
	}
}

func TestAnalyzerConcurrentReaders(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	samples := utils.GenerateSineWave(testSize*8, testSampleRate, 2000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pushChunked(a, samples, 512)
	}()
	go func() {
		defer wg.Done()
		dst := make([]float64, testSize/2)
		wave := make([]float64, testSize)
		for range 200 {
			dst = a.Averages(dst)
			wave = a.Waveform(wave)
		}
	}()
	wg.Wait()

	if a.Transforms() != 8 {
		t.Errorf("Transforms() = %d, want 8", a.Transforms())
	}
}

func TestPushSamplesZeroAllocs(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	samples := utils.GenerateSineWave(testSize, testSampleRate, 440)
	allocs := testing.AllocsPerRun(50, func() {
		a.PushSamples(samples)
	})
	if allocs != 0 {
		t.Errorf("PushSamples allocates %v times per run, want 0", allocs)
	}
}

func BenchmarkPushSamples(b *testing.B) {
	a, _ := NewAnalyzer(Options{Size: 2048, Window: dsp.Hanning, HistoryDepth: 8, SampleRate: testSampleRate})
	samples := utils.GenerateComplexWave(512, testSampleRate)
	b.ReportAllocs()
	for b.Loop() {
		a.PushSamples(samples)
	}
}
