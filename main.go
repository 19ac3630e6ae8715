// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"consolefft/cmd"
	"consolefft/internal/analysis"
	"consolefft/internal/audio"
	"consolefft/internal/build"
	"consolefft/internal/config"
	"consolefft/internal/log"
	"consolefft/internal/transport"
	"consolefft/internal/transport/udp"
	"consolefft/internal/tui"
)

// subscriberBuffer is the frame queue of each transport pump.
const subscriberBuffer = 16

// main is the entry point for the spectrum analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands (list, analyze) if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Capture (or replay) feeds the analyzer
//   - Transports publish frames and spectra
//   - The renderer draws until the user quits
//
// 3. Shutdown Phase (Cold Path):
//   - Any task finishing or a signal cancels the shared context
//   - Recording is closed, streams and servers stop
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatalf("Build: %v", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the capture callback (time-critical)
	// - One thread for analysis, UI and I/O
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if opts == nil {
		return // --help or --version
	}

	cfg := opts.Config
	log.SetLevel(cfg.Level())
	log.Debugf("Build: %s", build.Get())

	switch cfg.Command {
	case cmd.CommandList:
		err = listDevices()
	case cmd.CommandAnalyze:
		err = analyzeFile(cfg, opts.Peaks, os.Stdout)
	default:
		err = run(cfg)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// listDevices handles the one-off list command.
func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

// analyzeFile prints the strongest bins of a WAV file. Stereo files use the
// dual-channel transform.
func analyzeFile(cfg *config.Config, peaks int, w io.Writer) error {
	src, err := audio.OpenFile(cfg.Audio.InputFile)
	if err != nil {
		return err
	}
	channels := [][]int16{src.Mono()}
	if left, right, ok := src.Stereo(); ok {
		channels = [][]int16{left, right}
	}

	report, err := analysis.Analyze(channels, src.SampleRate, cfg.Analysis.FFTSize, cfg.WindowFunc(), peaks)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "File: %s (%s, %d-bit)\n", src.Path, src.Duration().Round(time.Millisecond), src.BitDepth)
	_, err = report.WriteTo(w)
	return err
}

// run starts the live analyzer and blocks until the user quits, a signal
// arrives or a task fails.
func run(cfg *config.Config) error {
	headless := cfg.Render.Headless

	// The renderer owns the terminal; logs go to log_file or nowhere.
	if !headless {
		restore, err := redirectLogs(cfg.LogFile)
		if err != nil {
			return err
		}
		defer restore()
	}

	var (
		src *audio.FileSource
		err error
	)
	sampleRate := cfg.Audio.SampleRate
	if cfg.Audio.InputFile != "" {
		if src, err = audio.OpenFile(cfg.Audio.InputFile); err != nil {
			return err
		}
		sampleRate = src.SampleRate
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	analyzer, err := analysis.NewAnalyzer(analysis.Options{
		Size:          cfg.Analysis.FFTSize,
		Window:        cfg.WindowFunc(),
		HistoryDepth:  cfg.Analysis.HistoryDepth,
		Normalization: cfg.Analysis.Normalization,
		SampleRate:    sampleRate,
		Mode:          cfg.Mode(),
		Metrics:       analysis.NewMetrics(reg),
	})
	if err != nil {
		return err
	}
	defer analyzer.Close()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Sample source
	if src != nil {
		g.Go(func() error {
			err := src.Run(ctx, analyzer, cfg.Audio.FramesPerBuffer, true)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if headless {
				cancel() // Nothing left to show.
			}
			return err
		})
	} else {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()

		engine, err := audio.NewEngine(cfg, analyzer)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return engine.Run(ctx)
		})
	}

	// Transports
	if log.Enabled(log.LevelDebug) {
		frames := analyzer.Subscribe(subscriberBuffer)
		lt := transport.NewLoggingTransport(analyzer.FrequencyForBin(1))
		g.Go(func() error {
			return transport.Pump(ctx, frames, lt, time.Second)
		})
	}

	if cfg.Transport.WebSocketEnabled {
		wst := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, reg)
		frames := analyzer.Subscribe(subscriberBuffer)
		g.Go(func() error {
			return wst.Run(ctx)
		})
		g.Go(func() error {
			return transport.Pump(ctx, frames, wst, cfg.Render.Interval)
		})
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, analyzer)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return publisher.Run(ctx)
		})
	}

	// Renderer
	if headless {
		log.Infof("Main: Running headless, press Ctrl+C to stop")
	} else {
		charMode, _ := tui.ParseCharMode(cfg.Render.CharMode)
		g.Go(func() error {
			defer cancel() // Quitting the renderer stops everything else.
			return tui.Run(ctx, analyzer, tui.Options{
				Interval:   cfg.Render.Interval,
				ScaleFFT:   cfg.Analysis.ScaleFFT,
				ScaleWave:  cfg.Analysis.ScaleWave,
				CharMode:   charMode,
				HelpFrames: cfg.Render.HelpFrames,
			})
		})
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	return g.Wait()
}

// redirectLogs sends log output to path, or discards it when path is
// empty. The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	prev := log.Writer()
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(prev) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(prev)
		f.Close()
	}, nil
}
