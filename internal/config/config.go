// Package config loads the tuner tools' YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-tuner/pitch"
	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the resolved tuner configuration.
type Config struct {
	LogLevel         LogLevel
	SampleRate       float64
	FrameSize        int
	HopSize          int
	Method           pitch.Method
	SilenceThreshold float64
	TrimThreshold    float64
	LowpassHz        float64
	FrameBudget      time.Duration
	MetricsAddr      string
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		LogLevel:         LogInfo,
		SampleRate:       44100,
		FrameSize:        2048,
		HopSize:          2048,
		Method:           pitch.MethodDirect,
		SilenceThreshold: pitch.DefaultSilenceThreshold,
		TrimThreshold:    pitch.DefaultTrimThreshold,
		FrameBudget:      16 * time.Millisecond,
	}
}

// File is the YAML schema. Unset fields keep their defaults.
type File struct {
	LogLevel         *string  `yaml:"log_level"`
	SampleRate       *float64 `yaml:"sample_rate"`
	FrameSize        *int     `yaml:"frame_size"`
	HopSize          *int     `yaml:"hop_size"`
	Method           *string  `yaml:"method"`
	SilenceThreshold *float64 `yaml:"silence_threshold"`
	TrimThreshold    *float64 `yaml:"trim_threshold"`
	LowpassHz        *float64 `yaml:"lowpass_hz"`
	FrameBudgetMS    *float64 `yaml:"frame_budget_ms"`
	MetricsAddr      *string  `yaml:"metrics_addr"`
}

// Load reads the YAML file at path on top of [Default].
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, applies it on top of [Default] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (Config, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg := Default()
	if err := ApplyFile(&cfg, &f); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFile copies the set fields of f onto dst.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("config: nil destination")
	}
	if f == nil {
		return nil
	}
	if f.LogLevel != nil {
		dst.LogLevel = LogLevel(strings.ToLower(strings.TrimSpace(*f.LogLevel)))
	}
	if f.SampleRate != nil {
		dst.SampleRate = *f.SampleRate
	}
	if f.FrameSize != nil {
		dst.FrameSize = *f.FrameSize
	}
	if f.HopSize != nil {
		dst.HopSize = *f.HopSize
	}
	if f.Method != nil {
		m, err := pitch.ParseMethod(*f.Method)
		if err != nil {
			return fmt.Errorf("config: method: %w", err)
		}
		dst.Method = m
	}
	if f.SilenceThreshold != nil {
		dst.SilenceThreshold = *f.SilenceThreshold
	}
	if f.TrimThreshold != nil {
		dst.TrimThreshold = *f.TrimThreshold
	}
	if f.LowpassHz != nil {
		dst.LowpassHz = *f.LowpassHz
	}
	if f.FrameBudgetMS != nil {
		dst.FrameBudget = time.Duration(*f.FrameBudgetMS * float64(time.Millisecond))
	}
	if f.MetricsAddr != nil {
		dst.MetricsAddr = strings.TrimSpace(*f.MetricsAddr)
	}
	return nil
}

// Validate returns a joined error listing every invalid field.
func Validate(cfg Config) error {
	var errs []error
	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if !(cfg.SampleRate > 0) {
		errs = append(errs, fmt.Errorf("sample_rate must be > 0, got %v", cfg.SampleRate))
	}
	if cfg.FrameSize < pitch.MinSamples {
		errs = append(errs, fmt.Errorf("frame_size must be >= %d, got %d", pitch.MinSamples, cfg.FrameSize))
	}
	if cfg.HopSize < 1 {
		errs = append(errs, fmt.Errorf("hop_size must be >= 1, got %d", cfg.HopSize))
	}
	if cfg.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("silence_threshold must be >= 0, got %v", cfg.SilenceThreshold))
	}
	if !(cfg.TrimThreshold > 0) {
		errs = append(errs, fmt.Errorf("trim_threshold must be > 0, got %v", cfg.TrimThreshold))
	}
	if cfg.LowpassHz < 0 {
		errs = append(errs, fmt.Errorf("lowpass_hz must be >= 0 (0 disables), got %v", cfg.LowpassHz))
	} else if cfg.LowpassHz > 0 && cfg.SampleRate > 0 && cfg.LowpassHz >= cfg.SampleRate/2 {
		errs = append(errs, fmt.Errorf("lowpass_hz %v must be below Nyquist (%v)", cfg.LowpassHz, cfg.SampleRate/2))
	}
	if cfg.FrameBudget < 0 {
		errs = append(errs, fmt.Errorf("frame_budget_ms must be >= 0, got %v", cfg.FrameBudget))
	}
	return errors.Join(errs...)
}

// PitchOptions converts the estimator settings to pitch options.
func (c Config) PitchOptions() []pitch.Option {
	return []pitch.Option{
		pitch.WithSilenceThreshold(c.SilenceThreshold),
		pitch.WithTrimThreshold(c.TrimThreshold),
		pitch.WithMethod(c.Method),
	}
}
