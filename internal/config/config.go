// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"time"
)

// ErrInvalidConfiguration wraps every validation failure. Invalid values
// are rejected at load time, never rounded or clamped.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Core configuration constants that define the boundaries and defaults
// for the analyzer.
const (
	// Audio capture defaults
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultBits            = 16          // 16-bit signed PCM
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode

	// Analysis defaults
	DefaultFFTSize       = 1024
	DefaultFFTWindow     = "Hanning"
	DefaultHistoryDepth  = 8
	DefaultNormalization = 10.0
	DefaultScaleFFT      = 0.01
	DefaultScaleWave     = 0.0005
	DefaultMode          = "fft"

	// Render defaults
	DefaultRenderInterval = 16 * time.Millisecond // ~60 frames per second
	DefaultCharMode       = CharModeSimple
	DefaultHelpFrames     = 400

	// Transport defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
	DefaultWebSocketAddress = ":8080"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MinFFTSize      = 32
	MaxFFTSize      = 32768
	MaxHistoryDepth = 256
)

// Render character modes.
const (
	CharModeSimple   = "simple"   // Full blocks only.
	CharModeMultiple = "multiple" // Full block, small square or dot by height.
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (forces debug log level).
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`          // Log destination while the TUI owns the terminal ("" discards).
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the analyzer ("list", "analyze").
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Transform and history settings.
	Render    RenderConfig    `yaml:"render"`            // Terminal renderer settings.
	Recording RecordingConfig `yaml:"recording"`         // Capture-to-WAV settings.
	Transport TransportConfig `yaml:"transport"`         // Network publishing settings.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	InputFile       string  `yaml:"input_file"`        // WAV file replayed instead of live capture ("" captures).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	Bits            int     `yaml:"bits"`              // Sample width, 8 or 16.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	GateEnabled     bool    `yaml:"gate_enabled"`      // Drop buffers whose peak is below GateThreshold.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Gate threshold as a fraction of full scale [0, 1].
}

// AnalysisConfig holds the transform, window and history settings.
type AnalysisConfig struct {
	FFTSize       int     `yaml:"fft_size"`      // Transform size N, a power of two.
	FFTWindow     string  `yaml:"fft_window"`    // Window function name (e.g., "Hanning", "BlackmanHarris").
	HistoryDepth  int     `yaml:"history_depth"` // Number of frames averaged.
	Normalization float64 `yaml:"normalization"` // Divisor K applied to window-normalised power.
	ScaleFFT      float64 `yaml:"scale_fft"`     // Spectrum display scale.
	ScaleWave     float64 `yaml:"scale_wave"`    // Waveform display scale.
	Mode          string  `yaml:"mode"`          // Initial display mode ("fft" or "waveform").
}

// RenderConfig holds terminal renderer settings.
type RenderConfig struct {
	Interval   time.Duration `yaml:"interval"`    // Redraw interval.
	CharMode   string        `yaml:"char_mode"`   // "simple" or "multiple".
	HelpFrames int           `yaml:"help_frames"` // Frames the help overlay stays visible after a key press.
	Headless   bool          `yaml:"headless"`    // Run without the terminal renderer.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Enable audio recording to file.
	OutputFile string `yaml:"output_file"` // Output WAV path ("" auto-generates a timestamped name).
}

// TransportConfig holds settings related to sending processed data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve frames over WebSocket (and /metrics).
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
}

// NewConfig returns a Config populated with the built-in defaults. It is
// the base onto which a YAML file, environment overrides and command line
// flags are applied.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Bits:            DefaultBits,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Analysis: AnalysisConfig{
			FFTSize:       DefaultFFTSize,
			FFTWindow:     DefaultFFTWindow,
			HistoryDepth:  DefaultHistoryDepth,
			Normalization: DefaultNormalization,
			ScaleFFT:      DefaultScaleFFT,
			ScaleWave:     DefaultScaleWave,
			Mode:          DefaultMode,
		},
		Render: RenderConfig{
			Interval:   DefaultRenderInterval,
			CharMode:   DefaultCharMode,
			HelpFrames: DefaultHelpFrames,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
	}
}
