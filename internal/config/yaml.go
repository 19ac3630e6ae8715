// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"consolefft/internal/analysis"
	"consolefft/internal/dsp"
	"consolefft/internal/log"
	"consolefft/internal/transport/udp"
	"consolefft/pkg/bitint"
)

// DefaultPath is searched when LoadConfig is called with an empty path.
const DefaultPath = "config.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, v...))
}

// Validate checks every field against its allowed range. All failures wrap
// ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	// Audio Validation
	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return invalid("audio.input_device %d must be >= %d", a.InputDevice, MinDeviceID)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.Bits != 8 && a.Bits != 16 {
		return invalid("audio.bits %d must be 8 or 16", a.Bits)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return invalid("audio.gate_threshold %f outside [0, 1]", a.GateThreshold)
	}

	// Analysis Validation
	an := c.Analysis
	if !bitint.IsPowerOfTwo(an.FFTSize) {
		return invalid("analysis.fft_size %d is not a power of two", an.FFTSize)
	}
	if an.FFTSize < MinFFTSize || an.FFTSize > MaxFFTSize {
		return invalid("analysis.fft_size %d outside [%d, %d]", an.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if _, err := dsp.ParseWindowFunc(an.FFTWindow); err != nil {
		return invalid("analysis.fft_window: %v", err)
	}
	if an.HistoryDepth < 1 || an.HistoryDepth > MaxHistoryDepth {
		return invalid("analysis.history_depth %d outside [1, %d]", an.HistoryDepth, MaxHistoryDepth)
	}
	if !(an.Normalization > 0) {
		return invalid("analysis.normalization must be positive, got %v", an.Normalization)
	}
	if !(an.ScaleFFT > 0) || !(an.ScaleWave > 0) {
		return invalid("analysis.scale_fft and analysis.scale_wave must be positive")
	}
	if _, err := analysis.ParseMode(an.Mode); err != nil {
		return invalid("analysis.mode %q must be fft or waveform", an.Mode)
	}

	// Render Validation
	if c.Render.Interval <= 0 {
		return invalid("render.interval must be positive")
	}
	if c.Render.CharMode != CharModeSimple && c.Render.CharMode != CharModeMultiple {
		return invalid("render.char_mode %q must be %s or %s", c.Render.CharMode, CharModeSimple, CharModeMultiple)
	}
	if c.Render.HelpFrames < 0 {
		return invalid("render.help_frames must not be negative")
	}

	// Transport Validation
	t := c.Transport
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			return invalid("transport.udp_target_address %q: %v", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
		if bins := an.FFTSize / 2; bins > udp.MaxMagnitudes {
			return invalid("analysis.fft_size %d gives %d bins, more than one UDP packet carries (%d)",
				an.FFTSize, bins, udp.MaxMagnitudes)
		}
	}
	if t.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(t.WebSocketAddress); err != nil {
			return invalid("transport.websocket_address %q: %v", t.WebSocketAddress, err)
		}
	}

	return nil
}

// WindowFunc returns the parsed analysis window. Call after Validate.
func (c *Config) WindowFunc() dsp.WindowFunc {
	wf, _ := dsp.ParseWindowFunc(c.Analysis.FFTWindow)
	return wf
}

// Mode returns the parsed initial display mode. Call after Validate.
func (c *Config) Mode() analysis.Mode {
	m, _ := analysis.ParseMode(c.Analysis.Mode)
	return m
}

// Level returns the effective log level: debug when Debug is set, otherwise
// the parsed LogLevel.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Values that fail to parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.
	envBool("ENV_DEBUG", "debug", &c.Debug)
	envString("ENV_LOG_LEVEL", "log_level", &c.LogLevel)

	// ENV_FFT_{...}
	envInt("ENV_FFT_SIZE", "analysis.fft_size", &c.Analysis.FFTSize)
	envString("ENV_FFT_WINDOW", "analysis.fft_window", &c.Analysis.FFTWindow)

	// ENV_UDP_{...}
	// These are specific to the transport layer.
	envBool("ENV_UDP_ENABLED", "transport.udp_enabled", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", "transport.udp_target_address", &c.Transport.UDPTargetAddress)
	envDuration("ENV_UDP_SEND_INTERVAL", "transport.udp_send_interval", &c.Transport.UDPSendInterval)

	// ENV_WS_{...}
	envBool("ENV_WS_ENABLED", "transport.websocket_enabled", &c.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", "transport.websocket_address", &c.Transport.WebSocketAddress)
}

func envString(name, key string, dst *string) {
	if val, ok := os.LookupEnv(name); ok {
		*dst = val
		log.Infof("Config: Overriding %s from env: %s", key, val)
	}
}

func envBool(name, key string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Warnf("Config: Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	log.Infof("Config: Overriding %s from env: %v", key, b)
}

func envInt(name, key string, dst *int) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Warnf("Config: Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = n
	log.Infof("Config: Overriding %s from env: %d", key, n)
}

func envDuration(name, key string, dst *time.Duration) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Warnf("Config: Ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = d
	log.Infof("Config: Overriding %s from env: %s", key, d)
}
