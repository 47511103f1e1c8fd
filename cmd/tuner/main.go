// Command tuner is the live guitar tuner: it listens on the default input
// device and shows the nearest string and a needle in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-tuner/internal/capture"
	"github.com/cwbudde/algo-tuner/internal/config"
	"github.com/cwbudde/algo-tuner/internal/observe"
	"github.com/cwbudde/algo-tuner/internal/ui"
	"github.com/cwbudde/algo-tuner/pitch"
	"github.com/cwbudde/algo-tuner/tuner"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML config file (optional)")
	frameSize := flag.Int("frame-size", 0, "Samples per frame (default from config)")
	sampleRate := flag.Float64("sample-rate", 0, "Capture sample rate (default from config)")
	method := flag.String("method", "", "Autocorrelation method: direct or fft")
	lowpass := flag.Float64("lowpass", -1, "Low-pass cutoff in Hz before estimation (0 disables)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Write logs to this file (the display owns the terminal)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "tuner: %v\n", err)
			return 1
		}
	}
	if *frameSize > 0 {
		cfg.FrameSize = *frameSize
		cfg.HopSize = *frameSize
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *method != "" {
		m, err := pitch.ParseMethod(*method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tuner: %v\n", err)
			return 1
		}
		cfg.Method = m
	}
	if *lowpass >= 0 {
		cfg.LowpassHz = *lowpass
	}
	if *logLevel != "" {
		cfg.LogLevel = config.LogLevel(*logLevel)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "tuner: invalid config: %v\n", err)
		return 1
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tuner: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := observe.NewLogger(logOut, string(cfg.LogLevel))
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var metrics *observe.Metrics
	if cfg.MetricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "tuner: metrics: %v\n", err)
			return 1
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics shutdown", "err", err)
			}
		}()
		metrics = observe.DefaultMetrics()
	}

	mic, err := capture.Open(cfg.SampleRate, cfg.FrameSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tuner: %v\n", err)
		return 1
	}
	defer func() {
		if err := mic.Close(); err != nil {
			logger.Warn("close capture", "err", err)
		}
	}()

	logger.Info("tuner starting",
		"sample_rate", cfg.SampleRate,
		"frame_size", cfg.FrameSize,
		"method", cfg.Method.String(),
		"lowpass_hz", cfg.LowpassHz,
		"metrics_addr", cfg.MetricsAddr,
	)

	tu := tuner.New(
		tuner.WithPitchOptions(cfg.PitchOptions()...),
		tuner.WithLogger(logger),
		tuner.WithMetrics(metrics),
		tuner.WithLowpass(cfg.LowpassHz),
		tuner.WithFrameBudget(cfg.FrameBudget),
	)

	snapshots := make(chan ui.Snapshot, 1)
	prog := tea.NewProgram(ui.NewModel(snapshots), tea.WithContext(ctx), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(snapshots)
		var last tuner.Frame
		src := tuner.SourceFunc(func(ctx context.Context) (tuner.Frame, error) {
			f, err := mic.Next(ctx)
			last = f
			return f, err
		})
		err := tu.Run(gctx, src, func(r tuner.Reading) error {
			publish(snapshots, ui.Snapshot{Reading: r, Samples: last.Samples, SampleRate: last.SampleRate})
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			prog.Send(ui.ErrMsg{Err: err})
		}
		return err
	})

	g.Go(func() error {
		defer cancel()
		final, err := prog.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("display: %w", err)
		}
		if m, ok := final.(ui.Model); ok && m.Err() != nil {
			return m.Err()
		}
		return nil
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return observe.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("tuner stopped", "err", err)
		fmt.Fprintf(os.Stderr, "tuner: %v\n", err)
		return 1
	}
	return 0
}

// publish hands s to the display, replacing an unread snapshot so the
// capture loop never waits on rendering.
func publish(ch chan ui.Snapshot, s ui.Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
