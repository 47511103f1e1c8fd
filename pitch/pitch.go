package pitch

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for frames the estimator cannot interpret:
// fewer than two samples, or a sample rate that is not a positive finite number.
var ErrInvalidInput = errors.New("pitch: invalid input")

// MinSamples is the shortest frame Detect accepts.
const MinSamples = 2

// Estimate is the result for one frame.
//
// The zero value means no pitch was found. FrequencyHz and Period are only
// meaningful when Detected is true; RMS is always filled for valid frames.
type Estimate struct {
	Detected    bool    `json:"detected"`
	FrequencyHz float64 `json:"frequency_hz,omitempty"`
	Period      int     `json:"period,omitempty"`
	RMS         float64 `json:"rms"`
}

// NoPitch is the estimate for silence or an indeterminate period.
var NoPitch = Estimate{}

// Detect estimates the fundamental frequency of samples captured at sampleRate.
func Detect(samples []float32, sampleRate float64, opts ...Option) (Estimate, error) {
	if len(samples) < MinSamples {
		return NoPitch, fmt.Errorf("%w: need at least %d samples, got %d", ErrInvalidInput, MinSamples, len(samples))
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return NoPitch, fmt.Errorf("%w: sample rate must be > 0, got %v", ErrInvalidInput, sampleRate)
	}
	cfg := ApplyOptions(opts...)

	level := RMS(samples)
	if level < cfg.SilenceThreshold {
		return Estimate{RMS: level}, nil
	}

	lo, hi := TrimBounds(samples, cfg.TrimThreshold)
	n := hi - lo + 1

	s := getScratch(n)
	defer putScratch(s)
	buf := s.buf[:n]
	for i := range buf {
		buf[i] = float64(samples[lo+i])
	}
	corr := s.corr[:n]

	switch cfg.Method {
	case MethodFFT:
		if err := autocorrelateFFT(corr, buf, s); err != nil {
			autocorrelateDirect(corr, buf)
		}
	default:
		autocorrelateDirect(corr, buf)
	}

	period := PickPeriod(corr)
	if period <= 0 {
		return Estimate{RMS: level}, nil
	}
	return Estimate{
		Detected:    true,
		FrequencyHz: sampleRate / float64(period),
		Period:      period,
		RMS:         level,
	}, nil
}

// RMS returns the root-mean-square level of x, or 0 for an empty slice.
func RMS(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, s := range x {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// TrimBounds returns the closed index range [lo, hi] of x that lies between
// the first sample below threshold in the leading half and the first sample
// below threshold scanning backward through the trailing half. Without such a
// sample, lo defaults to 0 and hi to len(x)-1.
func TrimBounds(x []float32, threshold float64) (lo, hi int) {
	size := len(x)
	lo, hi = 0, size-1
	// 2*i < size keeps i strictly below size/2 for odd sizes too.
	for i := 0; 2*i < size; i++ {
		if math.Abs(float64(x[i])) < threshold {
			lo = i
			break
		}
	}
	for i := 1; 2*i < size; i++ {
		if math.Abs(float64(x[size-i])) < threshold {
			hi = size - i
			break
		}
	}
	return lo, hi
}

// PickPeriod selects the period lag from an autocorrelation sequence.
//
// The initial decline from lag 0 is skipped; the first lag holding the
// maximum of the remainder wins. It returns 0 when the correlation declines
// over the whole range or the maximum stays at lag 0, both of which mean no
// period was found.
func PickPeriod(corr []float64) int {
	n := len(corr)
	if n < 2 {
		return 0
	}
	d := 0
	for d+1 < n && corr[d] > corr[d+1] {
		d++
	}
	if d >= n-1 {
		return 0
	}
	best, pos := corr[d], d
	for i := d + 1; i < n; i++ {
		if corr[i] > best {
			best = corr[i]
			pos = i
		}
	}
	return pos
}
