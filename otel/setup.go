package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is reported when TelemetryConfig.ServiceName is empty.
const DefaultServiceName = "fractions"

// InstrumentationName names the tracer and meter used for evaluation events.
const InstrumentationName = "github.com/petal-labs/fractions"

// TelemetryConfig configures the OpenTelemetry SDK.
type TelemetryConfig struct {
	ServiceName string

	// OTLPEndpoint is the OTLP/HTTP collector endpoint. Either a URL
	// ("http://localhost:4318") or a host:port. Empty disables export.
	OTLPEndpoint string

	// Insecure disables TLS when OTLPEndpoint is a host:port.
	Insecure bool

	// SpanProcessors are registered in addition to the OTLP exporter.
	SpanProcessors []sdktrace.SpanProcessor

	// MetricReaders are registered on the meter provider.
	MetricReaders []sdkmetric.Reader
}

// Telemetry holds the SDK providers built by Setup.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	exporting      bool
}

// Setup builds SDK tracer and meter providers and installs them as the
// global providers. Spans are exported with otlptracehttp when an endpoint
// is configured.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Telemetry, error) {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, sp := range cfg.SpanProcessors {
		traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(sp))
	}

	exporting := false
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
		exporting = true
	}

	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range cfg.MetricReaders {
		metricOpts = append(metricOpts, sdkmetric.WithReader(r))
	}

	t := &Telemetry{
		TracerProvider: sdktrace.NewTracerProvider(traceOpts...),
		MeterProvider:  sdkmetric.NewMeterProvider(metricOpts...),
		exporting:      exporting,
	}
	otelapi.SetTracerProvider(t.TracerProvider)
	otelapi.SetMeterProvider(t.MeterProvider)
	return t, nil
}

func exporterOptions(cfg TelemetryConfig) []otlptracehttp.Option {
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint)}
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// Exporting reports whether spans are sent to an OTLP collector.
func (t *Telemetry) Exporting() bool {
	return t.exporting
}

// Tracer returns the tracer used for evaluation spans.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.TracerProvider.Tracer(InstrumentationName)
}

// Meter returns the meter used for evaluation metrics.
func (t *Telemetry) Meter() metric.Meter {
	return t.MeterProvider.Meter(InstrumentationName)
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.MeterProvider.Shutdown(ctx),
	)
}
