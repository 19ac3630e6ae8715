// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"consolefft/internal/log"
)

// RecordingBitDepth is the sample width of every recording. 8-bit capture
// is widened on write.
const RecordingBitDepth = 16

// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag.
const wavFormatPCM = 1

var errAlreadyRecording = errors.New("already recording")

// RecordingFilename returns the default name for a recording started at t.
func RecordingFilename(t time.Time) string {
	return fmt.Sprintf("consolefft-%s.wav", t.Format("20060102-150405"))
}

// StartRecording creates filename and begins writing every captured buffer
// to it as mono 16-bit PCM.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.isRecording.Load() {
		return errAlreadyRecording
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	sampleRate := int(e.config.Audio.SampleRate)
	e.wavEncoder = wav.NewEncoder(file, sampleRate, RecordingBitDepth, 1, wavFormatPCM)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer),
		SourceBitDepth: RecordingBitDepth,
	}
	e.writeFailures = 0

	e.isRecording.Store(true)

	return nil
}

func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	return e.stopRecordingLocked()
}

func (e *Engine) stopRecordingLocked() error {
	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// Recording reports whether captured input is being written to disk.
func (e *Engine) Recording() bool {
	return e.isRecording.Load()
}

func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}

// record converts one callback buffer into the reusable IntBuffer and
// writes it. shift widens narrower samples to the recording bit depth.
// After maxConsecutiveWriteFailures failed writes the recording is stopped.
func record[T int8 | int16](e *Engine, in []T, shift uint) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if !e.isRecording.Load() || e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(in) {
		e.sampleBuf.Data = make([]int, len(in))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(in)]
	for i, sample := range in {
		e.sampleBuf.Data[i] = int(sample) << shift
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		e.writeFailures++
		log.Errorf("Capture: Error writing to WAV file: %v", err)
		if e.writeFailures >= maxConsecutiveWriteFailures {
			log.Errorf("Capture: Stopping recording after %d consecutive write failures", e.writeFailures)
			if err := e.stopRecordingLocked(); err != nil {
				log.Errorf("Capture: Error closing recording: %v", err)
			}
		}
		return
	}
	e.writeFailures = 0
}
