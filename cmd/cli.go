// SPDX-License-Identifier: MIT
package cmd

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"consolefft/internal/build"
	"consolefft/internal/config"
)

// Commands selected by subcommands.
const (
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// DefaultPeaks is the number of bins printed per channel by analyze.
const DefaultPeaks = 10

// Options is the parsed command line: the merged configuration plus values
// that only make sense for one invocation.
type Options struct {
	Config *config.Config
	Peaks  int // analyze: bins printed per channel
}

// flagValues holds raw flag values. Only flags the user actually set are
// copied into the configuration, so unset flags never override the file.
type flagValues struct {
	configPath string

	device      int
	frequency   float64
	bits        int
	frames      int
	lowLatency  bool
	input       string
	gate        float64
	fft         int
	window      string
	history     int
	norm        float64
	scaleFFT    float64
	scaleWave   float64
	mode        string
	chars       string
	interval    time.Duration
	headless    bool
	record      bool
	output      string
	udp         string
	udpInterval time.Duration
	websocket   string
	logFile     string
	verbose     bool
}

// ParseArgs parses args (without the program name) and returns the merged
// options. It returns nil options and a nil error when cobra handled the
// invocation itself (--help, --version).
func ParseArgs(args []string, stdout io.Writer) (*Options, error) {
	info := build.Get()
	fv := &flagValues{}
	opts := &Options{Peaks: DefaultPeaks}
	ran := false

	load := func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		fv.apply(cmd.Flags(), cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		opts.Config = cfg
		ran = true
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Real-time audio spectrum and waveform analyzer for the terminal",
		Version:       info.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd)
		},
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)

	// List command
	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			opts.Config.Command = CommandList
			return nil
		},
	}

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   CommandAnalyze + " <file.wav>",
		Short: "Print the strongest frequencies of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			opts.Config.Command = CommandAnalyze
			opts.Config.Audio.InputFile = args[0]
			return nil
		},
	}
	analyzeCmd.Flags().IntVar(&opts.Peaks, "peaks", DefaultPeaks, "Number of peaks printed per channel")

	rootCmd.AddCommand(listCmd, analyzeCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration file and logging
	pf.StringVar(&fv.configPath, "config", "", "Path to a YAML configuration file (default: ./"+config.DefaultPath+" if present)")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Show debug output")
	pf.StringVar(&fv.logFile, "log-file", "", "Write logs to this file while the terminal renderer is running")

	// Audio Device Configuration
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&fv.frequency, "frequency", "f", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.bits, "bits", "b", config.DefaultBits, "Sample width, 8 or 16 bits")
	pf.IntVar(&fv.frames, "frames-per-buffer", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&fv.input, "input", "i", "", "Replay a WAV file instead of capturing from a device")
	pf.Float64Var(&fv.gate, "gate", 0, "Enable the noise gate with this threshold (0-1 of full scale)")

	// Analysis Configuration
	pf.IntVarP(&fv.fft, "fft", "n", config.DefaultFFTSize, "Transform size, a power of two")
	pf.StringVarP(&fv.window, "window", "w", config.DefaultFFTWindow, "Window function (e.g. Hanning, BlackmanHarris, FlatTop)")
	pf.IntVar(&fv.history, "history", config.DefaultHistoryDepth, "Number of frames averaged")
	pf.Float64Var(&fv.norm, "norm", config.DefaultNormalization, "Spectrum normalisation divisor")
	pf.Float64Var(&fv.scaleFFT, "scale-fft", config.DefaultScaleFFT, "Spectrum display scale")
	pf.Float64Var(&fv.scaleWave, "scale-wave", config.DefaultScaleWave, "Waveform display scale")
	pf.StringVar(&fv.mode, "mode", config.DefaultMode, "Initial display mode: fft or waveform")

	// Render Configuration
	pf.StringVar(&fv.chars, "chars", config.DefaultCharMode, "Glyph style: simple or multiple")
	pf.DurationVar(&fv.interval, "interval", config.DefaultRenderInterval, "Redraw interval")
	pf.BoolVar(&fv.headless, "headless", false, "Run without the terminal renderer")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", false, "Record audio from the specified input device")
	pf.StringVarP(&fv.output, "output", "o", "", "Output file name. Default is consolefft-YYYYMMDD-HHMMSS.wav")

	// Transport Configuration
	pf.StringVar(&fv.udp, "udp", "", "Publish the spectrum over UDP to host:port")
	pf.DurationVar(&fv.udpInterval, "udp-interval", config.DefaultUDPSendInterval, "Interval between UDP packets")
	pf.StringVar(&fv.websocket, "websocket", "", "Serve frames on ws://ADDR/ws and metrics on /metrics")

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}
	return opts, nil
}

// apply copies every flag that was explicitly set onto cfg.
func (fv *flagValues) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := flags.Changed

	if set("verbose") {
		cfg.Debug = fv.verbose
	}
	if set("log-file") {
		cfg.LogFile = fv.logFile
	}

	if set("device") {
		cfg.Audio.InputDevice = fv.device
	}
	if set("frequency") {
		cfg.Audio.SampleRate = fv.frequency
	}
	if set("bits") {
		cfg.Audio.Bits = fv.bits
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.frames
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if set("input") {
		cfg.Audio.InputFile = fv.input
	}
	if set("gate") {
		cfg.Audio.GateEnabled = true
		cfg.Audio.GateThreshold = fv.gate
	}

	if set("fft") {
		cfg.Analysis.FFTSize = fv.fft
	}
	if set("window") {
		cfg.Analysis.FFTWindow = fv.window
	}
	if set("history") {
		cfg.Analysis.HistoryDepth = fv.history
	}
	if set("norm") {
		cfg.Analysis.Normalization = fv.norm
	}
	if set("scale-fft") {
		cfg.Analysis.ScaleFFT = fv.scaleFFT
	}
	if set("scale-wave") {
		cfg.Analysis.ScaleWave = fv.scaleWave
	}
	if set("mode") {
		cfg.Analysis.Mode = fv.mode
	}

	if set("chars") {
		cfg.Render.CharMode = fv.chars
	}
	if set("interval") {
		cfg.Render.Interval = fv.interval
	}
	if set("headless") {
		cfg.Render.Headless = fv.headless
	}

	if set("record") {
		cfg.Recording.Enabled = fv.record
	}
	if set("output") {
		cfg.Recording.OutputFile = fv.output
		cfg.Recording.Enabled = true
	}

	if set("udp") {
		cfg.Transport.UDPEnabled = fv.udp != ""
		cfg.Transport.UDPTargetAddress = fv.udp
	}
	if set("udp-interval") {
		cfg.Transport.UDPSendInterval = fv.udpInterval
	}
	if set("websocket") {
		cfg.Transport.WebSocketEnabled = fv.websocket != ""
		cfg.Transport.WebSocketAddress = fv.websocket
	}
}
