package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig configures the telemetry providers installed by
// [InitProvider].
type ProviderConfig struct {
	// ServiceName is reported on every metric and span. Default: "dictate".
	ServiceName string

	// ServiceVersion is reported alongside ServiceName.
	ServiceVersion string

	// TraceExporter, when set, receives finished spans in batches. Left nil,
	// spans still propagate context and correlation IDs but are not shipped
	// anywhere.
	TraceExporter sdktrace.SpanExporter
}

// teardown collects provider shutdown hooks so a partially built init can
// still be unwound in order.
type teardown []func(context.Context) error

func (td teardown) shutdown(ctx context.Context) error {
	errs := make([]error, 0, len(td))
	for _, fn := range td {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// InitProvider installs the global meter and tracer providers. Metrics are
// exposed through the Prometheus exporter registered on the default
// registry, which the /metrics route serves. The returned function flushes
// and stops both providers; call it once during process shutdown.
func InitProvider(ctx context.Context, cfg ProviderConfig) (func(context.Context) error, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var td teardown

	bridge, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	meters := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(bridge),
	)
	td = append(td, meters.Shutdown)
	otel.SetMeterProvider(meters)

	tracers := sdktrace.NewTracerProvider(traceOptions(cfg, res)...)
	td = append(td, tracers.Shutdown)
	otel.SetTracerProvider(tracers)

	return td.shutdown, nil
}

func buildResource(cfg ProviderConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "dictate"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
}

func traceOptions(cfg ProviderConfig, res *resource.Resource) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		opts = append(opts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	return opts
}
