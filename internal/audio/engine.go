// SPDX-License-Identifier: MIT
/*
Package audio captures mono PCM and feeds it to the analyzer:
- PortAudio input at 8 or 16 bits per sample
- Noise gate with branchless peak detection
- Optional WAV recording of the captured input
- WAV file playback as an alternative sample source

Thread Safety:
- Gate settings and the recording flag are atomics read by the callback
- The callback pushes the PortAudio buffer straight into the sink, which
  copies what it keeps
- Recording start/stop and the callback's encoder writes share a mutex
*/
package audio

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"consolefft/internal/analysis"
	"consolefft/internal/config"
	"consolefft/internal/log"
)

// maxConsecutiveWriteFailures stops a recording whose encoder keeps failing.
const maxConsecutiveWriteFailures = 5

type Engine struct {
	// Core configuration and the consumer of captured samples.
	config *config.Config
	sink   analysis.SampleSink

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Noise gate for signal conditioning.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Int32 // Absolute amplitude threshold on the capture scale.

	// Recording state and buffers.
	recMu         sync.Mutex
	isRecording   atomic.Bool
	outputFile    *os.File
	wavEncoder    *wav.Encoder
	sampleBuf     *audio.IntBuffer // Reusable buffer for format conversion.
	writeFailures int
}

// NewEngine resolves the configured input device and prepares an engine
// that pushes every captured buffer into sink. PortAudio must be
// initialized.
func NewEngine(cfg *config.Config, sink analysis.SampleSink) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	engine := newEngine(cfg, sink)
	engine.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return engine, nil
}

func newEngine(cfg *config.Config, sink analysis.SampleSink) *Engine {
	e := &Engine{config: cfg, sink: sink}
	e.gateEnabled.Store(cfg.Audio.GateEnabled)
	e.SetGateThreshold(cfg.Audio.GateThreshold)
	return e
}

// StartInputStream opens a mono input stream whose sample type follows
// audio.bits and starts it.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	var callback any = e.processInput16
	if e.config.Audio.Bits == 8 {
		callback = e.processInput8
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// Run starts capture (and recording when enabled), blocks until ctx is
// cancelled, then stops everything.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.StartInputStream(); err != nil {
		return err
	}

	if e.config.Recording.Enabled {
		name := e.config.Recording.OutputFile
		if name == "" {
			name = RecordingFilename(time.Now())
		}
		if err := e.StartRecording(name); err != nil {
			e.StopInputStream()
			return fmt.Errorf("failed to start recording: %w", err)
		}
		log.Infof("Capture: Recording to %s", name)
	}

	deviceName := "default"
	if e.inputDevice != nil {
		deviceName = e.inputDevice.Name
	}
	log.Infof("Capture: Listening on %q (%d-bit, %.0f Hz, %d frames/buffer)",
		deviceName, e.config.Audio.Bits, e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)

	<-ctx.Done()
	log.Infof("Capture: Stopping")
	return e.Close()
}

// processInput16 is the PortAudio callback for 16-bit capture.
// Performance Critical:
// - Runs on the PortAudio thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInput16(in []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.gateOpen(peakAmplitude(in)) {
		e.sink.PushSamples(in)
	}
	if e.isRecording.Load() {
		record(e, in, 0)
	}
}

// processInput8 is the PortAudio callback for 8-bit capture. Recordings are
// always 16-bit, so 8-bit samples are shifted up by 8 bits when written.
func (e *Engine) processInput8(in []int8) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.gateOpen(peakAmplitude(in)) {
		e.sink.PushSamples8(in)
	}
	if e.isRecording.Load() {
		record(e, in, 8)
	}
}
