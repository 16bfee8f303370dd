// Package observability provides OpenTelemetry tracing and metrics and the
// process logger for sherpa.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer and meter of every sherpa span and instrument.
const TracerName = "github.com/efebarandurmaz/sherpa"

// TracingConfig selects where scan spans go. An empty OTLPEndpoint keeps
// the global no-op provider.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is a host:port speaking OTLP over gRPC, e.g. a local
	// collector on :4317.
	OTLPEndpoint string
	// Insecure sends spans in plaintext; otherwise the system TLS roots
	// are used.
	Insecure bool
	// SampleRate in [0,1]; at or above 1 every run is traced.
	SampleRate float64
}

func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "sherpa",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
		Insecure:       true,
	}
}

func (c *TracingConfig) sampler() sdktrace.Sampler {
	switch {
	case c.SampleRate >= 1:
		return sdktrace.AlwaysSample()
	case c.SampleRate <= 0:
		return sdktrace.NeverSample()
	}
	// Child spans of a sampled scan.run are always kept.
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))
}

func (c *TracingConfig) resource() (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
		semconv.DeploymentEnvironment(c.Environment),
	))
}

// TracerProvider owns the SDK provider when exporting is enabled.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs a batching OTLP provider as the global one. With no
// endpoint it returns a provider whose Shutdown is a no-op.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter for %s: %w", cfg.OTLPEndpoint, err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return &TracerProvider{provider: provider, tracer: provider.Tracer(TracerName)}, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) Tracer() trace.Tracer { return tp.tracer }

// tracer follows the provider of the span already in ctx, so child spans
// land wherever their run is recorded. Without one it uses the global
// provider.
func tracer(ctx context.Context) trace.Tracer {
	if parent := trace.SpanFromContext(ctx); parent.SpanContext().IsValid() {
		return parent.TracerProvider().Tracer(TracerName)
	}
	return otel.Tracer(TracerName)
}

// StartScanSpan starts the root span of a scan run.
func StartScanSpan(ctx context.Context, root string, workers int) (context.Context, trace.Span) {
	return tracer(ctx).Start(ctx, "scan.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("scan.root", root),
			attribute.Int("scan.workers", workers),
		),
	)
}

// StartFileSpan starts a span for processing one file.
func StartFileSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return tracer(ctx).Start(ctx, "scan.file",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("file.path", path)),
	)
}

// StartStageSpan starts a span for the embed or store stage. These call
// external services, so the span kind is client.
func StartStageSpan(ctx context.Context, stage string, chunks int) (context.Context, trace.Span) {
	return tracer(ctx).Start(ctx, "scan."+stage,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("scan.chunks", chunks)),
	)
}

// RecordScanResult records the final counters on the run span.
func RecordScanResult(span trace.Span, files, failed, chunks int) {
	span.SetAttributes(
		attribute.Int("scan.files", files),
		attribute.Int("scan.files_failed", failed),
		attribute.Int("scan.chunks", chunks),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
