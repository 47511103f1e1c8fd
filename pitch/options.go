package pitch

import (
	"fmt"
	"strings"
)

const (
	// DefaultSilenceThreshold is the RMS level below which a frame is silent.
	DefaultSilenceThreshold = 0.01

	// DefaultTrimThreshold is the absolute amplitude a sample must drop below
	// to be used as a trim point at the frame edges.
	DefaultTrimThreshold = 0.2
)

// Method selects how the autocorrelation is computed.
type Method int

const (
	// MethodDirect sums lagged products directly. Cost is O(N^2).
	MethodDirect Method = iota
	// MethodFFT computes the autocorrelation as the inverse FFT of the power
	// spectrum of the zero-padded frame.
	MethodFFT
)

// String returns the config name of the method.
func (m Method) String() string {
	switch m {
	case MethodDirect:
		return "direct"
	case MethodFFT:
		return "fft"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a config name ("direct" or "fft") to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return MethodDirect, nil
	case "fft":
		return MethodFFT, nil
	default:
		return MethodDirect, fmt.Errorf("pitch: unknown method %q (use direct or fft)", s)
	}
}

// Config holds the estimator settings.
type Config struct {
	SilenceThreshold float64
	TrimThreshold    float64
	Method           Method
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the compatibility defaults.
func DefaultConfig() Config {
	return Config{
		SilenceThreshold: DefaultSilenceThreshold,
		TrimThreshold:    DefaultTrimThreshold,
		Method:           MethodDirect,
	}
}

// WithSilenceThreshold sets the RMS silence gate. Negative values are ignored;
// zero disables the gate for everything except pure digital silence.
func WithSilenceThreshold(rms float64) Option {
	return func(cfg *Config) {
		if rms >= 0 {
			cfg.SilenceThreshold = rms
		}
	}
}

// WithTrimThreshold sets the edge trimming amplitude. Values <= 0 are ignored.
func WithTrimThreshold(amplitude float64) Option {
	return func(cfg *Config) {
		if amplitude > 0 {
			cfg.TrimThreshold = amplitude
		}
	}
}

// WithMethod selects the autocorrelation method.
func WithMethod(m Method) Option {
	return func(cfg *Config) {
		if m == MethodDirect || m == MethodFFT {
			cfg.Method = m
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
