package ui

import (
	"math"
	"math/cmplx"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mjibson/go-dsp/fft"
)

const (
	numBands = 10
	fftSize  = 4096
)

// Block elements for bar height, nine levels including space.
var barBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Band edges in Hz, spaced over the guitar fundamentals and first harmonics.
var bandEdges = [numBands + 1]float64{60, 90, 125, 170, 230, 310, 420, 560, 750, 1000, 1400}

// Spectrum turns frames into smoothed band levels for the spectrum strip.
type Spectrum struct {
	prev [numBands]float64
	buf  []float64
	win  []float64
}

// NewSpectrum creates a Spectrum. The Hann window is sized to each frame.
func NewSpectrum() *Spectrum {
	return &Spectrum{buf: make([]float64, fftSize)}
}

// window returns a Hann window of length n, rebuilding it when the frame
// length changes.
func (s *Spectrum) window(n int) []float64 {
	if len(s.win) == n {
		return s.win
	}
	s.win = make([]float64, n)
	if n == 1 {
		s.win[0] = 1
		return s.win
	}
	for i := range s.win {
		s.win[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return s.win
}

// Analyze returns normalized band levels in [0, 1]. An empty frame decays
// the previous levels.
func (s *Spectrum) Analyze(samples []float32, sampleRate float64) [numBands]float64 {
	var bands [numBands]float64
	if len(samples) == 0 || !(sampleRate > 0) {
		for b := range numBands {
			bands[b] = s.prev[b] * 0.8
			s.prev[b] = bands[b]
		}
		return bands
	}

	// Frames shorter than fftSize are zero-padded after the window.
	n := min(len(samples), fftSize)
	win := s.window(n)
	clear(s.buf)
	for i := range n {
		s.buf[i] = float64(samples[i]) * win[i]
	}
	spectrum := fft.FFTReal(s.buf)

	binHz := sampleRate / float64(fftSize)
	half := len(spectrum) / 2
	for b := range numBands {
		lo := max(1, int(bandEdges[b]/binHz))
		hi := min(half-1, int(bandEdges[b+1]/binHz))

		var sum float64
		count := 0
		for i := lo; i <= hi; i++ {
			sum += cmplx.Abs(spectrum[i])
			count++
		}
		if count > 0 {
			sum /= float64(count)
		}
		if sum > 0 {
			bands[b] = (20*math.Log10(sum) + 10) / 50
		}
		bands[b] = max(0, min(1, bands[b]))

		// Fast attack, slow decay.
		if bands[b] > s.prev[b] {
			bands[b] = bands[b]*0.6 + s.prev[b]*0.4
		} else {
			bands[b] = bands[b]*0.25 + s.prev[b]*0.75
		}
		s.prev[b] = bands[b]
	}
	return bands
}

// renderSpectrum draws band levels as colored bars filling width columns.
func renderSpectrum(bands [numBands]float64, width int) string {
	if width < numBands {
		return ""
	}
	bw := max(1, (width-(numBands-1))/numBands)

	var sb strings.Builder
	for i, level := range bands {
		idx := max(0, min(int(level*float64(len(barBlocks)-1)), len(barBlocks)-1))

		var style lipgloss.Style
		switch {
		case level > 0.75:
			style = specHighStyle
		case level > 0.45:
			style = specMidStyle
		default:
			style = specLowStyle
		}
		sb.WriteString(style.Render(strings.Repeat(barBlocks[idx], bw)))
		if i < numBands-1 {
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
