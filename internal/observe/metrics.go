// Package observe provides application-wide observability primitives for
// the media studio server: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/Astrocyte74/tts-hub"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation. This is the ambient process-metrics surface;
// it is complementary to the client-visible ETA samples in internal/stats,
// not a replacement for them.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// EngineDuration tracks one dispatcher synthesize() call's latency. Use
	// with attribute.String("engine", id).
	EngineDuration metric.Float64Histogram

	// TranscribeDuration tracks one STT transcribe-to-words call's latency.
	TranscribeDuration metric.Float64Histogram

	// AlignDuration tracks one forced-alignment call's latency (full or
	// region). Use with attribute.String("scope", "full"|"region").
	AlignDuration metric.Float64Histogram

	// IngestDownloadDuration tracks one URL-resolve-or-download call's
	// latency, including cache hits (recorded as ~0).
	IngestDownloadDuration metric.Float64Histogram

	// --- Counters ---

	// EngineRequests counts dispatcher synthesize() calls. Use with
	// attribute.String("engine", id), attribute.String("status", "ok"|"error").
	EngineRequests metric.Int64Counter

	// EngineErrors counts dispatcher synthesize() failures by engine and
	// error kind.
	EngineErrors metric.Int64Counter

	// MediaJobStageCompleted counts completed media-job lifecycle stages.
	// Use with attribute.String("stage", "transcribe"|"align"|"align_region"|
	// "replace_preview"|"apply").
	MediaJobStageCompleted metric.Int64Counter

	// --- Gauges ---

	// ActiveMediaJobs tracks the number of media jobs with an in-flight
	// mutating request.
	ActiveMediaJobs metric.Int64UpDownCounter

	// ActiveIngestDownloads tracks the number of in-flight URL downloads.
	ActiveIngestDownloads metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds), spanning
// sub-second engine calls up to multi-minute media-job operations.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EngineDuration, err = m.Float64Histogram("ttshub.engine.duration",
		metric.WithDescription("Latency of a dispatcher synthesize() call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("ttshub.transcribe.duration",
		metric.WithDescription("Latency of a speech-to-text transcription call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignDuration, err = m.Float64Histogram("ttshub.align.duration",
		metric.WithDescription("Latency of a forced-alignment call (full or region)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IngestDownloadDuration, err = m.Float64Histogram("ttshub.ingest.download.duration",
		metric.WithDescription("Latency of a URL resolve-or-download call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.EngineRequests, err = m.Int64Counter("ttshub.engine.requests",
		metric.WithDescription("Total dispatcher synthesize() calls by engine and status."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("ttshub.engine.errors",
		metric.WithDescription("Total dispatcher synthesize() failures by engine and error kind."),
	); err != nil {
		return nil, err
	}
	if met.MediaJobStageCompleted, err = m.Int64Counter("ttshub.mediajob.stage_completed",
		metric.WithDescription("Total completed media-job lifecycle stages by stage name."),
	); err != nil {
		return nil, err
	}

	if met.ActiveMediaJobs, err = m.Int64UpDownCounter("ttshub.mediajob.active",
		metric.WithDescription("Number of media jobs with an in-flight mutating request."),
	); err != nil {
		return nil, err
	}
	if met.ActiveIngestDownloads, err = m.Int64UpDownCounter("ttshub.ingest.downloads.active",
		metric.WithDescription("Number of in-flight URL downloads."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("ttshub.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordEngineRequest is a convenience method that records an engine
// request counter increment with the standard attribute set.
func (m *Metrics) RecordEngineRequest(ctx context.Context, engine, status string) {
	m.EngineRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("status", status),
		),
	)
}

// RecordEngineError is a convenience method that records an engine error
// counter increment.
func (m *Metrics) RecordEngineError(ctx context.Context, engine, kind string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("kind", kind),
		),
	)
}

// RecordMediaJobStage is a convenience method that records a completed
// media-job lifecycle stage.
func (m *Metrics) RecordMediaJobStage(ctx context.Context, stage string) {
	m.MediaJobStageCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
