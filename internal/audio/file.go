// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"consolefft/internal/analysis"
	"consolefft/internal/log"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// FileSource holds a decoded WAV file as 16-bit channels and replays it into
// a sample sink.
type FileSource struct {
	Path       string
	SampleRate float64
	BitDepth   int // Bit depth of the file; samples are converted to 16 bits.

	channels [][]int16
}

// OpenFile decodes a whole PCM WAV file. Samples of any bit depth are
// rescaled to 16 bits; 8-bit WAV data is unsigned and is re-centred first.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, path, err)
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("%w: %s has no channels", ErrInvalidWAV, path)
	}
	bitDepth := int(dec.BitDepth)
	frames := len(buf.Data) / numChannels

	channels := make([][]int16, numChannels)
	for c := range channels {
		channels[c] = make([]int16, frames)
	}
	for i := range frames {
		for c := range numChannels {
			channels[c][i] = toInt16(buf.Data[i*numChannels+c], bitDepth)
		}
	}

	log.Infof("Source: Loaded %s (%d channels, %d-bit, %d Hz, %d frames)",
		path, numChannels, bitDepth, buf.Format.SampleRate, frames)

	return &FileSource{
		Path:       path,
		SampleRate: float64(buf.Format.SampleRate),
		BitDepth:   bitDepth,
		channels:   channels,
	}, nil
}

func toInt16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}

// Channels returns the number of channels in the file.
func (s *FileSource) Channels() int { return len(s.channels) }

// Frames returns the number of samples per channel.
func (s *FileSource) Frames() int {
	return len(s.channels[0])
}

// Duration returns the playback length.
func (s *FileSource) Duration() time.Duration {
	return time.Duration(float64(s.Frames()) / s.SampleRate * float64(time.Second))
}

// Mono returns the first channel.
func (s *FileSource) Mono() []int16 {
	return s.channels[0]
}

// Stereo returns the first two channels, or ok=false for a mono file.
func (s *FileSource) Stereo() (left, right []int16, ok bool) {
	if len(s.channels) < 2 {
		return nil, nil, false
	}
	return s.channels[0], s.channels[1], true
}

// Run pushes the first channel into sink in chunks of chunk samples. When
// paced is set, each chunk is released at the rate it would arrive from a
// capture device; otherwise the file is pushed as fast as possible. Run
// returns when the file is exhausted or ctx is cancelled.
func (s *FileSource) Run(ctx context.Context, sink analysis.SampleSink, chunk int, paced bool) error {
	if chunk < 1 {
		return fmt.Errorf("invalid chunk size %d", chunk)
	}
	samples := s.Mono()

	var tick <-chan time.Time
	if paced {
		interval := time.Duration(float64(chunk) / s.SampleRate * float64(time.Second))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for len(samples) > 0 {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		n := min(chunk, len(samples))
		sink.PushSamples(samples[:n])
		samples = samples[n:]
	}
	log.Infof("Source: Finished %s", s.Path)
	return nil
}
