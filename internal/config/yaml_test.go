// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"consolefft/internal/analysis"
	"consolefft/internal/dsp"
	"consolefft/internal/log"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Analysis.FFTSize != DefaultFFTSize || cfg.Analysis.HistoryDepth != DefaultHistoryDepth {
		t.Errorf("unexpected defaults: %+v", cfg.Analysis)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: warn
audio:
  sample_rate: 48000
  bits: 8
analysis:
  fft_size: 4096
  fft_window: blackman-harris
  history_depth: 16
  mode: waveform
render:
  interval: 33ms
  char_mode: multiple
transport:
  udp_enabled: true
  udp_send_interval: 50ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Bits != 8 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	// Keys missing from the file keep their defaults.
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("frames_per_buffer = %d, want default", cfg.Audio.FramesPerBuffer)
	}
	if cfg.Analysis.FFTSize != 4096 || cfg.WindowFunc() != dsp.BlackmanHarris {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Mode() != analysis.ModeWaveform {
		t.Errorf("Mode() = %s", cfg.Mode())
	}
	if cfg.Render.Interval != 33*time.Millisecond || cfg.Render.CharMode != CharModeMultiple {
		t.Errorf("render = %+v", cfg.Render)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPSendInterval != 50*time.Millisecond {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.Level() != log.LevelWarn {
		t.Errorf("Level() = %s", cfg.Level())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fft size not power of two", func(c *Config) { c.Analysis.FFTSize = 1000 }},
		{"fft size too small", func(c *Config) { c.Analysis.FFTSize = 16 }},
		{"fft size too large", func(c *Config) { c.Analysis.FFTSize = 65536 }},
		{"unknown window", func(c *Config) { c.Analysis.FFTWindow = "cosine" }},
		{"zero history", func(c *Config) { c.Analysis.HistoryDepth = 0 }},
		{"zero normalization", func(c *Config) { c.Analysis.Normalization = 0 }},
		{"negative fft scale", func(c *Config) { c.Analysis.ScaleFFT = -1 }},
		{"unknown mode", func(c *Config) { c.Analysis.Mode = "scope" }},
		{"24 bit", func(c *Config) { c.Audio.Bits = 24 }},
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 4000 }},
		{"device below default", func(c *Config) { c.Audio.InputDevice = -2 }},
		{"huge buffer", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }},
		{"gate above full scale", func(c *Config) { c.Audio.GateThreshold = 1.5 }},
		{"zero render interval", func(c *Config) { c.Render.Interval = 0 }},
		{"unknown char mode", func(c *Config) { c.Render.CharMode = "braille" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}},
		{"udp zero interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}},
		{"udp with largest fft", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Analysis.FFTSize = MaxFFTSize
		}},
		{"websocket bad address", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddress = "8080"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Validate() = %v, want ErrInvalidConfiguration", err)
			}
		})
	}

	if err := NewConfig().Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}

	// The largest transform is fine as long as nothing sends it over UDP.
	cfg := NewConfig()
	cfg.Analysis.FFTSize = MaxFFTSize
	if err := cfg.Validate(); err != nil {
		t.Errorf("fft_size %d without UDP: %v", MaxFFTSize, err)
	}
	cfg.Transport.UDPEnabled = true
	cfg.Analysis.FFTSize = MaxFFTSize / 2
	if err := cfg.Validate(); err != nil {
		t.Errorf("fft_size %d with UDP: %v", MaxFFTSize/2, err)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "analysis:\n  fft_size: 1000\n")
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("LoadConfig error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_FFT_SIZE", "2048")
	t.Setenv("ENV_FFT_WINDOW", "Hamming")
	t.Setenv("ENV_UDP_ENABLED", "1")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.2:7000")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "100ms")
	t.Setenv("ENV_WS_ENABLED", "yes") // not a bool, ignored
	t.Setenv("ENV_WS_ADDRESS", "127.0.0.1:9000")

	path := writeTempConfig(t, "analysis:\n  fft_size: 512\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.Debug || cfg.Level() != log.LevelDebug {
		t.Error("ENV_DEBUG not applied")
	}
	if cfg.Analysis.FFTSize != 2048 {
		t.Errorf("fft_size = %d, want env value 2048", cfg.Analysis.FFTSize)
	}
	if cfg.WindowFunc() != dsp.Hamming {
		t.Errorf("window = %s", cfg.WindowFunc())
	}
	tr := cfg.Transport
	if !tr.UDPEnabled || tr.UDPTargetAddress != "10.0.0.2:7000" || tr.UDPSendInterval != 100*time.Millisecond {
		t.Errorf("udp overrides not applied: %+v", tr)
	}
	if tr.WebSocketEnabled {
		t.Error("unparseable ENV_WS_ENABLED should be ignored")
	}
	if tr.WebSocketAddress != "127.0.0.1:9000" {
		t.Errorf("websocket_address = %q", tr.WebSocketAddress)
	}
}
