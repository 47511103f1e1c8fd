package pitch

import (
	"fmt"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// scratch holds the per-call working buffers. Instances are pooled so a
// steady stream of equally sized frames does not allocate.
type scratch struct {
	buf  []float64
	corr []float64

	// FFT path only.
	plan     *algofft.Plan[complex128]
	planSize int
	time     []complex128
	freq     []complex128
	re, im   []float64
	pow      []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratch{} },
}

func getScratch(n int) *scratch {
	s := scratchPool.Get().(*scratch)
	s.buf = growFloat(s.buf, n)
	s.corr = growFloat(s.corr, n)
	return s
}

func putScratch(s *scratch) {
	scratchPool.Put(s)
}

func growFloat(b []float64, n int) []float64 {
	if cap(b) < n {
		return make([]float64, n)
	}
	return b[:n]
}

func growComplex(b []complex128, n int) []complex128 {
	if cap(b) < n {
		return make([]complex128, n)
	}
	return b[:n]
}

// autocorrelateDirect writes c[lag] = sum_j x[j]*x[j+lag] for every lag of x.
func autocorrelateDirect(dst, x []float64) {
	n := len(x)
	for lag := 0; lag < n; lag++ {
		a := x[:n-lag]
		b := x[lag:]
		var sum float64
		for j := range a {
			sum += a[j] * b[j]
		}
		dst[lag] = sum
	}
}

// autocorrelateFFT computes the same sequence as autocorrelateDirect via
// IFFT(|FFT(x)|^2). The frame is zero-padded to at least 2N-1 points so the
// circular correlation equals the linear one for lags 0..N-1.
func autocorrelateFFT(dst, x []float64, s *scratch) error {
	n := len(x)
	size := nextPowerOf2(2*n - 1)

	if s.plan == nil || s.planSize != size {
		plan, err := algofft.NewPlan64(size)
		if err != nil {
			return fmt.Errorf("pitch: failed to create FFT plan: %w", err)
		}
		s.plan = plan
		s.planSize = size
	}

	s.time = growComplex(s.time, size)
	s.freq = growComplex(s.freq, size)
	s.re = growFloat(s.re, size)
	s.im = growFloat(s.im, size)
	s.pow = growFloat(s.pow, size)

	for i := range s.time {
		if i < n {
			s.time[i] = complex(x[i], 0)
		} else {
			s.time[i] = 0
		}
	}
	if err := s.plan.Forward(s.freq, s.time); err != nil {
		return fmt.Errorf("pitch: forward FFT failed: %w", err)
	}

	for i, c := range s.freq {
		s.re[i] = real(c)
		s.im[i] = imag(c)
	}
	vecmath.Power(s.pow, s.re, s.im)
	for i, p := range s.pow {
		s.freq[i] = complex(p, 0)
	}

	if err := s.plan.Inverse(s.time, s.freq); err != nil {
		return fmt.Errorf("pitch: inverse FFT failed: %w", err)
	}
	for lag := 0; lag < n; lag++ {
		dst[lag] = real(s.time[lag])
	}
	return nil
}

// Autocorrelate returns the un-normalized autocorrelation of x for lags
// 0..len(x)-1 using the given method.
func Autocorrelate(x []float64, m Method) ([]float64, error) {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out, nil
	}
	if m == MethodFFT {
		if err := autocorrelateFFT(out, x, &scratch{}); err != nil {
			return nil, err
		}
		return out, nil
	}
	autocorrelateDirect(out, x)
	return out, nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
