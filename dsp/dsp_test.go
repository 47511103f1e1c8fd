package dsp

import (
	"math"
	"testing"
)

func sineBlock(freq, sr float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sr))
	}
	return out
}

func rms(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestLowpassPassesLowAttenuatesHigh(t *testing.T) {
	const sr = 44100
	lp := NewLowpass(500, sr, 0.707)

	low := sineBlock(110, sr, 8192)
	outLow := make([]float32, len(low))
	lp.ProcessBlock(outLow, low)

	lp.Reset()
	high := sineBlock(5000, sr, 8192)
	outHigh := make([]float32, len(high))
	lp.ProcessBlock(outHigh, high)

	// Skip the transient.
	gLow := rms(outLow[2048:]) / rms(low[2048:])
	gHigh := rms(outHigh[2048:]) / rms(high[2048:])
	if gLow < 0.9 || gLow > 1.1 {
		t.Fatalf("passband gain = %.3f, want ~1", gLow)
	}
	if gHigh > 0.05 {
		t.Fatalf("stopband gain = %.3f, want < 0.05", gHigh)
	}
}

func TestHighpassRemovesDC(t *testing.T) {
	hp := NewHighpass(20, 44100, 0.707)
	x := make([]float32, 44100)
	for i := range x {
		x[i] = 0.5
	}
	hp.ProcessBlock(x, x)
	if tail := math.Abs(float64(x[len(x)-1])); tail > 1e-3 {
		t.Fatalf("DC residue = %v", tail)
	}
}

func TestProcessBlockInPlaceMatchesSampleWise(t *testing.T) {
	src := sineBlock(330, 48000, 512)
	a := NewLowpass(1000, 48000, 0.707)
	b := NewLowpass(1000, 48000, 0.707)

	inPlace := append([]float32(nil), src...)
	a.ProcessBlock(inPlace, inPlace)
	for i, v := range src {
		if got := b.Process(v); got != inPlace[i] {
			t.Fatalf("sample %d: block %v, sample-wise %v", i, inPlace[i], got)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	f := NewLowpass(1000, 48000, 0.707)
	first := f.Process(1)
	for i := 0; i < 10; i++ {
		f.Process(1)
	}
	f.Reset()
	if got := f.Process(1); got != first {
		t.Fatalf("after Reset got %v, want %v", got, first)
	}
}

func TestCutoffIsClampedBelowNyquist(t *testing.T) {
	f := NewLowpass(30000, 44100, 0)
	for i := 0; i < 1000; i++ {
		v := f.Process(float32(math.Sin(float64(i))))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("unstable output at %d: %v", i, v)
		}
	}
}

func TestFlushDenormals(t *testing.T) {
	if FlushDenormals(1e-35) != 0 || FlushDenormals(-1e-35) != 0 {
		t.Fatalf("denormals not flushed")
	}
	if FlushDenormals(0.25) != 0.25 {
		t.Fatalf("normal value changed")
	}
}
