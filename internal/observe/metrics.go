// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing helpers, and structured-logging
// glue.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/openlaudos/dictate"

// Metrics holds all OpenTelemetry metric instruments for the dictation
// engine. All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// MatchDuration tracks one fuzzy-matching pass over a snapshot.
	MatchDuration metric.Float64Histogram

	// TranscriptionDuration tracks transcription backend latency.
	TranscriptionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request handling latency. Recorded by
	// [Middleware] with method and path attributes.
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// Transcripts counts processed transcript chunks. Use with attributes:
	//   attribute.String("source", ...), attribute.String("outcome", "command"|"literal"|"dropped"|"stale")
	Transcripts metric.Int64Counter

	// CommandsDispatched counts dispatched command intents. Use with attribute:
	//   attribute.String("kind", ...)
	CommandsDispatched metric.Int64Counter

	// StaleMatches counts matches dropped because the entry vanished in a
	// reload between matching and dispatch.
	StaleMatches metric.Int64Counter

	// TranscriptionErrors counts transcription backend failures.
	TranscriptionErrors metric.Int64Counter

	// RegistryReloads counts snapshot publications.
	RegistryReloads metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks live dictation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// RemoteConnections tracks paired remote devices currently connected.
	RemoteConnections metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for matching and transcription latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.MatchDuration, err = m.Float64Histogram("dictate.match.duration",
		metric.WithDescription("Latency of one fuzzy-matching pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("dictate.stt.duration",
		metric.WithDescription("Latency of audio transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("dictate.http.request.duration",
		metric.WithDescription("Latency of HTTP request handling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("dictate.transcripts",
		metric.WithDescription("Processed transcript chunks by source and outcome."),
	); err != nil {
		return nil, err
	}
	if met.CommandsDispatched, err = m.Int64Counter("dictate.commands.dispatched",
		metric.WithDescription("Dispatched command intents by entry kind."),
	); err != nil {
		return nil, err
	}
	if met.StaleMatches, err = m.Int64Counter("dictate.matches.stale",
		metric.WithDescription("Matches dropped because the entry vanished in a reload."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionErrors, err = m.Int64Counter("dictate.stt.errors",
		metric.WithDescription("Transcription backend failures."),
	); err != nil {
		return nil, err
	}
	if met.RegistryReloads, err = m.Int64Counter("dictate.registry.reloads",
		metric.WithDescription("Registry snapshot publications."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("dictate.sessions.active",
		metric.WithDescription("Live dictation sessions."),
	); err != nil {
		return nil, err
	}
	if met.RemoteConnections, err = m.Int64UpDownCounter("dictate.remote.connections",
		metric.WithDescription("Paired remote devices currently connected."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
