package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/cwbudde/algo-tuner/internal/audiofile"
	"github.com/cwbudde/algo-tuner/internal/config"
	"github.com/cwbudde/algo-tuner/internal/observe"
	"github.com/cwbudde/algo-tuner/note"
	"github.com/cwbudde/algo-tuner/pitch"
	"github.com/cwbudde/algo-tuner/tuner"
)

type frameReport struct {
	TimeS float64 `json:"time_s"`
	tuner.Reading
}

type summary struct {
	Frames          int        `json:"frames"`
	Detected        int        `json:"detected"`
	MedianHz        float64    `json:"median_hz,omitempty"`
	Match           note.Match `json:"match"`
	DurationSeconds float64    `json:"duration_s"`
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	input := flag.String("input", "", "Input WAV file")
	frameSize := flag.Int("frame-size", 0, "Samples per frame (default from config)")
	hop := flag.Int("hop", 0, "Samples between frame starts (default from config)")
	method := flag.String("method", "", "Autocorrelation method: direct or fft")
	sampleRate := flag.Int("sample-rate", 0, "Resample input to this rate (0 keeps the file rate)")
	lowpass := flag.Float64("lowpass", -1, "Low-pass cutoff in Hz before estimation (0 disables)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	jsonOut := flag.Bool("json", false, "Emit JSON lines instead of text")
	quiet := flag.Bool("summary-only", false, "Only print the summary")
	flag.Parse()

	if *input == "" {
		die("missing -input")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			die("%v", err)
		}
	}
	if *frameSize > 0 {
		cfg.FrameSize = *frameSize
	}
	if *hop > 0 {
		cfg.HopSize = *hop
	}
	if *method != "" {
		m, err := pitch.ParseMethod(*method)
		if err != nil {
			die("%v", err)
		}
		cfg.Method = m
	}
	if *lowpass >= 0 {
		cfg.LowpassHz = *lowpass
	}
	if *logLevel != "" {
		cfg.LogLevel = config.LogLevel(*logLevel)
	}

	rec, err := audiofile.Load(*input, *sampleRate)
	if err != nil {
		die("read input: %v", err)
	}
	cfg.SampleRate = float64(rec.SampleRate)
	if err := config.Validate(cfg); err != nil {
		die("invalid config: %v", err)
	}

	logger := observe.NewLogger(os.Stderr, string(cfg.LogLevel))
	logger.Debug("loaded input", "path", *input, "samples", len(rec.Samples), "sample_rate", rec.SampleRate, "duration_s", rec.Duration())

	src, err := audiofile.NewFrameSource(rec, cfg.FrameSize, cfg.HopSize)
	if err != nil {
		die("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tu := tuner.New(
		tuner.WithPitchOptions(cfg.PitchOptions()...),
		tuner.WithLogger(logger),
		tuner.WithLowpass(cfg.LowpassHz),
		tuner.WithFrameBudget(cfg.FrameBudget),
	)

	enc := json.NewEncoder(os.Stdout)
	var detected []float64
	frames := 0
	err = tu.Run(ctx, src, func(r tuner.Reading) error {
		frames++
		if r.Estimate.Detected {
			detected = append(detected, r.Estimate.FrequencyHz)
		}
		if *quiet {
			return nil
		}
		t := src.OffsetSeconds(r.Seq)
		if *jsonOut {
			return enc.Encode(frameReport{TimeS: t, Reading: r})
		}
		printReading(t, r)
		return nil
	})
	if err != nil {
		die("run: %v", err)
	}

	sum := summary{Frames: frames, Detected: len(detected), DurationSeconds: rec.Duration()}
	if len(detected) > 0 {
		sum.MedianHz = median(detected)
		sum.Match, err = note.Closest(sum.MedianHz, note.StandardGuitar())
		if err != nil {
			die("match: %v", err)
		}
	}

	if *jsonOut {
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	fmt.Printf("\nFrames: %d, detected: %d, duration: %.2fs\n", sum.Frames, sum.Detected, sum.DurationSeconds)
	if sum.Detected > 0 {
		fmt.Printf("Median: %.2f Hz -> %s (%+.1f cents, needle %+.1f deg)\n",
			sum.MedianHz, sum.Match, sum.Match.Cents, sum.Match.DeflectionDegrees)
	}
}

func printReading(t float64, r tuner.Reading) {
	if !r.Estimate.Detected {
		fmt.Printf("%8.3fs  --     rms %.4f\n", t, r.Estimate.RMS)
		return
	}
	m := r.Match
	fmt.Printf("%8.3fs  %-3s %8.2f Hz  %+7.2f Hz  %+6.1f deg  %+5.0f cents\n",
		t, m.Note.Name, r.Estimate.FrequencyHz, m.DeviationHz, m.DeflectionDegrees, m.Cents)
}

func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
