// Package observe provides the tuner's OpenTelemetry metrics and the
// Prometheus bridge used to scrape them.
//
// Tests should build a [Metrics] with [NewMetrics] and a meter provider backed
// by a manual reader; [DefaultMetrics] uses the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all tuner metrics.
const meterName = "github.com/cwbudde/algo-tuner"

// Frame results used as the "result" attribute.
const (
	ResultDetected = "detected"
	ResultSilent   = "silent"
	ResultInvalid  = "invalid"
)

// Metrics holds the metric instruments. The OTel instruments are safe for
// concurrent use.
type Metrics struct {
	// FrameDuration tracks estimation + note mapping time per frame.
	FrameDuration metric.Float64Histogram

	// Frames counts processed frames by result.
	Frames metric.Int64Counter

	// OverBudget counts frames whose processing exceeded the frame budget.
	OverBudget metric.Int64Counter

	// DetectedFrequency records detected fundamentals in Hz.
	DetectedFrequency metric.Float64Histogram
}

// frameBuckets are histogram boundaries in seconds around a 60 Hz display
// refresh interval.
var frameBuckets = []float64{
	0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1,
}

// frequencyBuckets cover the guitar range with headroom.
var frequencyBuckets = []float64{
	60, 82.41, 110, 146.83, 196, 246.94, 329.63, 440, 660, 1000,
}

// NewMetrics creates the instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FrameDuration, err = m.Float64Histogram("tuner.frame.duration",
		metric.WithDescription("Time spent estimating pitch and matching a note for one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("tuner.frames",
		metric.WithDescription("Processed frames by result."),
	); err != nil {
		return nil, err
	}
	if met.OverBudget, err = m.Int64Counter("tuner.frames.over_budget",
		metric.WithDescription("Frames whose processing exceeded the frame budget."),
	); err != nil {
		return nil, err
	}
	if met.DetectedFrequency, err = m.Float64Histogram("tuner.detected.frequency",
		metric.WithDescription("Detected fundamental frequency."),
		metric.WithUnit("Hz"),
		metric.WithExplicitBucketBoundaries(frequencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance created from
// [otel.GetMeterProvider] on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one processed frame. frequencyHz is only recorded for
// detected frames.
func (m *Metrics) RecordFrame(ctx context.Context, result string, elapsed time.Duration, frequencyHz float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.Frames.Add(ctx, 1, attrs)
	if result == ResultInvalid {
		return
	}
	m.FrameDuration.Record(ctx, elapsed.Seconds(), attrs)
	if result == ResultDetected {
		m.DetectedFrequency.Record(ctx, frequencyHz)
	}
}

// RecordOverBudget counts a frame that missed its budget.
func (m *Metrics) RecordOverBudget(ctx context.Context) {
	if m == nil {
		return
	}
	m.OverBudget.Add(ctx, 1)
}
