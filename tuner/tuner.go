// Package tuner runs the per-frame loop that turns audio frames into tuner
// readings: pitch estimation followed by note matching.
package tuner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-tuner/dsp"
	"github.com/cwbudde/algo-tuner/internal/observe"
	"github.com/cwbudde/algo-tuner/note"
	"github.com/cwbudde/algo-tuner/pitch"
)

// DefaultFrameBudget is one 60 Hz display refresh interval.
const DefaultFrameBudget = 16 * time.Millisecond

// Frame is one buffer of mono samples. The tuner only reads Samples and does
// not keep them after Process returns.
type Frame struct {
	Samples    []float32
	SampleRate float64
}

// Reading is the result for one frame. Match is only set when
// Estimate.Detected is true.
type Reading struct {
	Seq      uint64         `json:"seq"`
	Estimate pitch.Estimate `json:"estimate"`
	Match    note.Match     `json:"match"`
	Elapsed  time.Duration  `json:"elapsed_ns"`
}

// Source delivers frames. Next returns io.EOF when no more frames follow.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Frame, error)

// Next calls f.
func (f SourceFunc) Next(ctx context.Context) (Frame, error) { return f(ctx) }

// Tuner processes frames one at a time. It is not safe for concurrent use.
type Tuner struct {
	table     note.Table
	pitchOpts []pitch.Option
	logger    *slog.Logger
	metrics   *observe.Metrics
	budget    time.Duration
	now       func() time.Time

	lowpassHz  float64
	filter     *dsp.Biquad
	filterRate float64
	filtered   []float32

	seq uint64
}

// Option configures a Tuner.
type Option func(*Tuner)

// WithTable sets the reference table. The default is note.StandardGuitar.
func WithTable(t note.Table) Option {
	return func(tu *Tuner) {
		tu.table = append(note.Table(nil), t...)
	}
}

// WithPitchOptions sets the estimator options used for every frame.
func WithPitchOptions(opts ...pitch.Option) Option {
	return func(tu *Tuner) {
		tu.pitchOpts = append([]pitch.Option(nil), opts...)
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(tu *Tuner) {
		if l != nil {
			tu.logger = l
		}
	}
}

// WithMetrics records per-frame metrics into m.
func WithMetrics(m *observe.Metrics) Option {
	return func(tu *Tuner) {
		tu.metrics = m
	}
}

// WithLowpass low-pass filters each frame at cutoffHz before estimation.
// The filter state is reset per frame. Zero disables the filter.
func WithLowpass(cutoffHz float64) Option {
	return func(tu *Tuner) {
		if cutoffHz >= 0 {
			tu.lowpassHz = cutoffHz
		}
	}
}

// WithFrameBudget sets the processing time above which a frame is reported
// as over budget. Zero disables the check.
func WithFrameBudget(d time.Duration) Option {
	return func(tu *Tuner) {
		if d >= 0 {
			tu.budget = d
		}
	}
}

// New creates a Tuner.
func New(opts ...Option) *Tuner {
	t := &Tuner{
		table:  note.StandardGuitar(),
		logger: slog.Default(),
		budget: DefaultFrameBudget,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Process estimates the pitch of f and matches it against the table.
// Errors wrap pitch.ErrInvalidInput for malformed frames or
// note.ErrInvalidInput for an unusable table.
func (t *Tuner) Process(ctx context.Context, f Frame) (Reading, error) {
	start := t.now()
	r := Reading{Seq: t.seq}
	t.seq++

	samples := f.Samples
	if t.lowpassHz > 0 && len(samples) >= pitch.MinSamples && f.SampleRate > 0 {
		samples = t.prefilter(samples, f.SampleRate)
	}

	est, err := pitch.Detect(samples, f.SampleRate, t.pitchOpts...)
	if err != nil {
		t.metrics.RecordFrame(ctx, observe.ResultInvalid, 0, 0)
		return r, err
	}
	r.Estimate = est

	if est.Detected {
		m, err := note.Closest(est.FrequencyHz, t.table)
		if err != nil {
			return r, err
		}
		r.Match = m
	}

	r.Elapsed = t.now().Sub(start)
	result := observe.ResultSilent
	if est.Detected {
		result = observe.ResultDetected
	}
	t.metrics.RecordFrame(ctx, result, r.Elapsed, est.FrequencyHz)
	if t.budget > 0 && r.Elapsed > t.budget {
		t.metrics.RecordOverBudget(ctx)
		t.logger.Debug("frame over budget", "seq", r.Seq, "elapsed", r.Elapsed, "budget", t.budget, "samples", len(f.Samples))
	}
	return r, nil
}

func (t *Tuner) prefilter(samples []float32, sampleRate float64) []float32 {
	if t.filter == nil || t.filterRate != sampleRate {
		t.filter = dsp.NewLowpass(t.lowpassHz, sampleRate, 0.707)
		t.filterRate = sampleRate
	}
	if cap(t.filtered) < len(samples) {
		t.filtered = make([]float32, len(samples))
	}
	out := t.filtered[:len(samples)]
	t.filter.Reset()
	t.filter.ProcessBlock(out, samples)
	return out
}

// Run pulls frames from src until it returns io.EOF or ctx is cancelled and
// hands every reading to sink. Malformed frames are logged and skipped. A
// sink error stops the run and is returned.
func (t *Tuner) Run(ctx context.Context, src Source, sink func(Reading) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		r, err := t.Process(ctx, f)
		if errors.Is(err, pitch.ErrInvalidInput) {
			t.logger.Warn("skipping invalid frame", "seq", r.Seq, "err", err)
			continue
		}
		if err != nil {
			return err
		}
		if err := sink(r); err != nil {
			return err
		}
	}
}

// SliceSource serves a fixed list of frames, then io.EOF.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource returns a Source over frames.
func NewSliceSource(frames ...Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Len returns the number of frames not yet served.
func (s *SliceSource) Len() int {
	return len(s.frames) - s.pos
}
