package pitch

import (
	"math"
	"math/rand"
	"testing"
)

func TestAutocorrelateDirectSmall(t *testing.T) {
	got, err := Autocorrelate([]float64{1, 2, 3}, MethodDirect)
	if err != nil {
		t.Fatalf("Autocorrelate: %v", err)
	}
	want := []float64{14, 8, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lag %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAutocorrelateFFTMatchesDirect(t *testing.T) {
	for _, n := range []int{2, 3, 17, 256, 1000, 2048} {
		rng := rand.New(rand.NewSource(int64(n)))
		x := make([]float64, n)
		for i := range x {
			x[i] = rng.Float64()*2 - 1
		}
		direct, err := Autocorrelate(x, MethodDirect)
		if err != nil {
			t.Fatalf("n=%d direct: %v", n, err)
		}
		viaFFT, err := Autocorrelate(x, MethodFFT)
		if err != nil {
			t.Fatalf("n=%d fft: %v", n, err)
		}
		tol := 1e-9 * direct[0]
		for lag := range direct {
			if math.Abs(direct[lag]-viaFFT[lag]) > tol {
				t.Fatalf("n=%d lag %d: direct %v, fft %v", n, lag, direct[lag], viaFFT[lag])
			}
		}
	}
}

func TestAutocorrelateEmpty(t *testing.T) {
	got, err := Autocorrelate(nil, MethodFFT)
	if err != nil {
		t.Fatalf("Autocorrelate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestNextPowerOf2(t *testing.T) {
	tests := map[int]int{1: 1, 2: 2, 3: 4, 4095: 4096, 4096: 4096, 4097: 8192}
	for in, want := range tests {
		if got := nextPowerOf2(in); got != want {
			t.Fatalf("nextPowerOf2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodDirect, false},
		{"direct", MethodDirect, false},
		{" FFT ", MethodFFT, false},
		{"yin", MethodDirect, true},
	}
	for _, tc := range tests {
		got, err := ParseMethod(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseMethod(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseMethod(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if MethodFFT.String() != "fft" || MethodDirect.String() != "direct" {
		t.Fatalf("unexpected method names %q %q", MethodDirect, MethodFFT)
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	cfg := ApplyOptions(WithSilenceThreshold(-1), WithTrimThreshold(0), WithMethod(Method(9)), nil)
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, DefaultConfig())
	}
	cfg = ApplyOptions(WithSilenceThreshold(0.02), WithTrimThreshold(0.3), WithMethod(MethodFFT))
	if cfg.SilenceThreshold != 0.02 || cfg.TrimThreshold != 0.3 || cfg.Method != MethodFFT {
		t.Fatalf("cfg = %+v", cfg)
	}
}
