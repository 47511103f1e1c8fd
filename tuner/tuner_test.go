package tuner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/cwbudde/algo-tuner/internal/observe"
	"github.com/cwbudde/algo-tuner/note"
	"github.com/cwbudde/algo-tuner/pitch"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const testRate = 44100

func sineFrame(t *testing.T, freq float64, n int) Frame {
	t.Helper()
	g := signal.NewGenerator(core.WithSampleRate(testRate))
	x, err := g.Sine(freq, 0.5, n)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	out := make([]float32, n)
	for i, v := range x {
		out[i] = float32(v)
	}
	return Frame{Samples: out, SampleRate: testRate}
}

func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func sumByResult(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: unexpected data type %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("result"))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestProcessDetectsA2(t *testing.T) {
	tu := New()
	r, err := tu.Process(context.Background(), sineFrame(t, 110, 2048))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !r.Estimate.Detected {
		t.Fatalf("reading = %+v, want detected", r)
	}
	if math.Abs(r.Estimate.FrequencyHz-110) > 0.5 {
		t.Fatalf("frequency = %v, want ~110", r.Estimate.FrequencyHz)
	}
	// Integer lags put the estimate at 44100/401 Hz, just below the reference.
	if r.Match.Note.Name != "A" || math.Abs(r.Match.DeflectionDegrees) >= 0.5 {
		t.Fatalf("match = %+v, want A near 0 degrees", r.Match)
	}
	if want := note.Deflection(r.Estimate.FrequencyHz - 110); r.Match.DeflectionDegrees != want {
		t.Fatalf("deflection = %v, want %v", r.Match.DeflectionDegrees, want)
	}
}

func TestProcessSilenceHasNoMatch(t *testing.T) {
	tu := New()
	r, err := tu.Process(context.Background(), Frame{Samples: make([]float32, 1024), SampleRate: testRate})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if r.Estimate.Detected || r.Match != (note.Match{}) {
		t.Fatalf("reading = %+v, want no pitch and zero match", r)
	}
}

func TestProcessInvalidFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	tu := New(WithMetrics(m))
	_, err := tu.Process(context.Background(), Frame{Samples: []float32{0.1}, SampleRate: testRate})
	if !errors.Is(err, pitch.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if got := sumByResult(t, reader, "tuner.frames"); got[observe.ResultInvalid] != 1 {
		t.Fatalf("frames = %v, want one invalid", got)
	}
}

func TestProcessCustomTable(t *testing.T) {
	table, err := note.NewTable(note.Reference{Name: "A4", FrequencyHz: 440})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	tu := New(WithTable(table))
	r, err := tu.Process(context.Background(), sineFrame(t, 440, 2048))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if r.Match.Note.Name != "A4" {
		t.Fatalf("match = %+v, want A4", r.Match)
	}
}

func TestProcessEmptyTableErrors(t *testing.T) {
	tu := New(WithTable(note.Table{}))
	_, err := tu.Process(context.Background(), sineFrame(t, 110, 2048))
	if !errors.Is(err, note.ErrInvalidInput) {
		t.Fatalf("err = %v, want note.ErrInvalidInput", err)
	}
}

func TestProcessSequenceNumbers(t *testing.T) {
	tu := New()
	ctx := context.Background()
	for want := uint64(0); want < 3; want++ {
		r, err := tu.Process(ctx, sineFrame(t, 196, 2048))
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if r.Seq != want {
			t.Fatalf("Seq = %d, want %d", r.Seq, want)
		}
	}
}

func TestLowpassKeepsFundamental(t *testing.T) {
	f := sineFrame(t, 110, 2048)
	// Add a strong component well above the cutoff.
	hi := sineFrame(t, 5000, 2048)
	for i := range f.Samples {
		f.Samples[i] += hi.Samples[i]
	}
	orig := append([]float32(nil), f.Samples...)

	tu := New(WithLowpass(800))
	r, err := tu.Process(context.Background(), f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !r.Estimate.Detected || r.Match.Note.Name != "A" {
		t.Fatalf("reading = %+v, want A", r)
	}
	for i := range orig {
		if f.Samples[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestLowpassFramesAreIndependent(t *testing.T) {
	tu := New(WithLowpass(1000))
	ctx := context.Background()
	f := sineFrame(t, 146.83, 2048)

	first, err := tu.Process(ctx, f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := tu.Process(ctx, sineFrame(t, 329.63, 2048)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	again, err := tu.Process(ctx, f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if first.Estimate != again.Estimate {
		t.Fatalf("estimate changed: %+v vs %+v", first.Estimate, again.Estimate)
	}
}

func TestFrameBudget(t *testing.T) {
	m, reader := newTestMetrics(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tu := New(WithMetrics(m), WithLogger(logger), WithFrameBudget(time.Millisecond))
	clock := time.Unix(0, 0)
	tu.now = func() time.Time {
		clock = clock.Add(5 * time.Millisecond)
		return clock
	}

	r, err := tu.Process(context.Background(), sineFrame(t, 110, 2048))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if r.Elapsed != 5*time.Millisecond {
		t.Fatalf("Elapsed = %v, want 5ms", r.Elapsed)
	}
	if !strings.Contains(logs.String(), "frame over budget") {
		t.Fatalf("missing over-budget log: %q", logs.String())
	}
	if got := sumByResult(t, reader, "tuner.frames.over_budget"); got[""] != 1 {
		t.Fatalf("over budget = %v, want 1", got)
	}
}

func TestFrameBudgetZeroDisables(t *testing.T) {
	m, reader := newTestMetrics(t)
	tu := New(WithMetrics(m), WithFrameBudget(0))
	tu.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := tu.Process(context.Background(), sineFrame(t, 110, 2048)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := sumByResult(t, reader, "tuner.frames.over_budget"); len(got) != 0 {
		t.Fatalf("over budget = %v, want none", got)
	}
}

func TestRunSkipsInvalidFrames(t *testing.T) {
	m, reader := newTestMetrics(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	src := NewSliceSource(
		sineFrame(t, 110, 2048),
		Frame{Samples: []float32{0.5}, SampleRate: testRate},
		Frame{Samples: make([]float32, 2048), SampleRate: 0},
		sineFrame(t, 196, 2048),
		Frame{Samples: make([]float32, 2048), SampleRate: testRate},
	)

	var got []Reading
	err := New(WithMetrics(m), WithLogger(logger)).Run(context.Background(), src, func(r Reading) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d readings, want 3", len(got))
	}
	if got[0].Match.Note.Name != "A" || got[1].Match.Note.Name != "G" || got[2].Estimate.Detected {
		t.Fatalf("readings = %+v", got)
	}
	if got[1].Seq != 3 {
		t.Fatalf("Seq after skipped frames = %d, want 3", got[1].Seq)
	}
	if n := strings.Count(logs.String(), "skipping invalid frame"); n != 2 {
		t.Fatalf("warn count = %d, want 2: %q", n, logs.String())
	}

	counts := sumByResult(t, reader, "tuner.frames")
	want := map[string]int64{observe.ResultDetected: 2, observe.ResultSilent: 1, observe.ResultInvalid: 2}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("frames[%s] = %d, want %d (all: %v)", k, counts[k], v, counts)
		}
	}
}

func TestRunStopsOnSinkError(t *testing.T) {
	stop := errors.New("stop")
	src := NewSliceSource(sineFrame(t, 110, 2048), sineFrame(t, 110, 2048))
	calls := 0
	err := New().Run(context.Background(), src, func(Reading) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want sink error", err)
	}
	if calls != 1 || src.Len() != 1 {
		t.Fatalf("calls = %d, remaining = %d", calls, src.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frame := sineFrame(t, 110, 2048)
	n := 0
	src := SourceFunc(func(context.Context) (Frame, error) {
		n++
		if n == 3 {
			cancel()
		}
		return frame, nil
	})
	err := New().Run(ctx, src, func(Reading) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunPropagatesSourceError(t *testing.T) {
	boom := errors.New("device lost")
	src := SourceFunc(func(context.Context) (Frame, error) { return Frame{}, boom })
	if err := New().Run(context.Background(), src, func(Reading) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want source error", err)
	}
}

func TestSliceSourceEOF(t *testing.T) {
	src := NewSliceSource()
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
