// Package observe wires hearsim's OpenTelemetry metrics: processing and
// analysis latency, pipeline cache behaviour and HTTP request counts.
//
// Instruments are created from a [metric.MeterProvider] passed to
// [NewMetrics]. Serve mode installs a Prometheus-backed provider with
// [InitProvider]; tests use a ManualReader so assertions do not depend on
// global state.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hearsim metrics.
const meterName = "hearsim"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// PipelineDuration tracks the time spent computing a pipeline result
	// (cache misses only).
	PipelineDuration metric.Float64Histogram

	// AnalysisDuration tracks spectrogram computation time.
	AnalysisDuration metric.Float64Histogram

	// CacheLookups counts pipeline cache lookups. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// Computations counts pipeline runs that actually filtered audio.
	Computations metric.Int64Counter

	// ClampedCutoffs counts filter designs whose cutoff was clamped.
	ClampedCutoffs metric.Int64Counter

	// HTTPRequests counts API requests. Use with attributes:
	//   attribute.String("route", ...), attribute.Int("status", ...)
	HTTPRequests metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries in seconds. A minute of
// 44.1 kHz audio filters in a few milliseconds, a long file in a second.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PipelineDuration, err = m.Float64Histogram("hearsim.pipeline.duration",
		metric.WithDescription("Time to filter and gain-compensate one buffer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("hearsim.analysis.duration",
		metric.WithDescription("Time to compute one spectrogram."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CacheLookups, err = m.Int64Counter("hearsim.pipeline.cache.lookups",
		metric.WithDescription("Pipeline cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.Computations, err = m.Int64Counter("hearsim.pipeline.computations",
		metric.WithDescription("Pipeline runs that computed a new result."),
	); err != nil {
		return nil, err
	}
	if met.ClampedCutoffs, err = m.Int64Counter("hearsim.filter.clamped",
		metric.WithDescription("Filter designs whose cutoff was clamped into range."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequests, err = m.Int64Counter("hearsim.http.requests",
		metric.WithDescription("HTTP API requests by route and status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordCacheLookup increments the lookup counter for a hit or a miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordComputation records one computed pipeline result and its duration.
func (m *Metrics) RecordComputation(ctx context.Context, d time.Duration, clamped bool) {
	m.Computations.Add(ctx, 1)
	m.PipelineDuration.Record(ctx, d.Seconds())
	if clamped {
		m.ClampedCutoffs.Add(ctx, 1)
	}
}

// RecordAnalysis records one spectrogram computation.
func (m *Metrics) RecordAnalysis(ctx context.Context, d time.Duration) {
	m.AnalysisDuration.Record(ctx, d.Seconds())
}

// RecordHTTPRequest increments the request counter.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, route string, status int) {
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
