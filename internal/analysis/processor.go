// SPDX-License-Identifier: MIT
package analysis

import "errors"

// ErrInvalidOptions is returned by constructors when an option other than
// the transform size or window is out of range.
var ErrInvalidOptions = errors.New("invalid analyzer options")

// SampleSink accepts captured PCM. Implementations should be efficient as
// this is called from within the real-time audio callback.
type SampleSink interface {
	PushSamples(samples []int16) // PushSamples accepts 16-bit mono samples.
	PushSamples8(samples []int8) // PushSamples8 accepts 8-bit mono samples.
}

// SpectrumProvider exposes the rolling averaged spectrum to consumers that
// poll it at their own cadence (UDP publisher, offline reports).
type SpectrumProvider interface {
	Averages(dst []float64) []float64 // Averages fills dst (reallocated if short) with the averaged power of every bin.
	FrequencyForBin(bin int) float64  // FrequencyForBin returns the centre frequency (Hz) of a bin.
	Bins() int                        // Bins returns N/2.
	SampleRate() float64              // SampleRate returns the configured sample rate.
}

// FrameSource publishes completed frames.
type FrameSource interface {
	Subscribe(buffer int) <-chan Frame
}

// Compile-time checks for interface implementations.
var (
	_ SampleSink       = (*Analyzer)(nil)
	_ SpectrumProvider = (*Analyzer)(nil)
	_ FrameSource      = (*Analyzer)(nil)
)
