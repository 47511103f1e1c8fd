package dsp

import "math"

// Biquad implements a second-order IIR filter (no heap allocations in Process)
type Biquad struct {
	// Coefficients, normalized by a0
	b0, b1, b2 float32
	a1, a2     float32

	// State (previous samples)
	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// NewBiquad creates a new biquad filter with the given coefficients
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{
		b0: b0,
		b1: b1,
		b2: b2,
		a1: a1,
		a2: a2,
	}
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = FlushDenormals(output)

	return b.y1
}

// ProcessBlock filters src into dst. dst and src may alias; only the shorter
// length is processed.
func (b *Biquad) ProcessBlock(dst, src []float32) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = b.Process(src[i])
	}
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass creates a lowpass biquad (RBJ cookbook).
func NewLowpass(cutoff, sampleRate, q float64) *Biquad {
	alpha, cosw0 := rbj(cutoff, sampleRate, q)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	return normalized(b0, b1, b2, 1.0+alpha, -2.0*cosw0, 1.0-alpha)
}

// NewHighpass creates a highpass biquad (RBJ cookbook). At a low cutoff it
// doubles as a DC blocker.
func NewHighpass(cutoff, sampleRate, q float64) *Biquad {
	alpha, cosw0 := rbj(cutoff, sampleRate, q)

	b0 := (1.0 + cosw0) / 2.0
	b1 := -(1.0 + cosw0)
	b2 := (1.0 + cosw0) / 2.0
	return normalized(b0, b1, b2, 1.0+alpha, -2.0*cosw0, 1.0-alpha)
}

func rbj(cutoff, sampleRate, q float64) (alpha, cosw0 float64) {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	// Keep the corner strictly inside (0, Nyquist).
	nyquist := sampleRate / 2
	if cutoff >= nyquist {
		cutoff = nyquist * 0.999
	}
	if cutoff <= 0 {
		cutoff = 1e-3
	}
	w0 := 2.0 * math.Pi * cutoff / sampleRate
	return math.Sin(w0) / (2.0 * q), math.Cos(w0)
}

func normalized(b0, b1, b2, a0, a1, a2 float64) *Biquad {
	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
