// Package tracing exports spans for calls to the identity endpoint and
// forwards W3C trace context on them.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/torosent/restauth/internal/config"
)

const (
	scopeName          = "github.com/torosent/restauth/internal/auth"
	defaultServiceName = "restauth"

	// A command emits a few fetch spans at most; flush them quickly.
	fetchBatchTimeout = time.Second
)

// Provider owns the tracer handed to the token fetcher. The zero value and a
// nil *Provider are disabled providers.
type Provider struct {
	tp        *sdktrace.TracerProvider
	propagate bool
}

// Init builds a Provider from cfg. Tracing that is disabled, or enabled with
// no collector endpoint, yields a provider without an exporter; the latter
// still forwards trace context when propagation is on.
func Init(ctx context.Context, cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}
	p := &Provider{propagate: cfg.ShouldPropagate()}

	endpoint := collectorEndpoint(cfg)
	if endpoint == "" {
		return p, nil
	}

	sampler, err := fetchSampler(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	res, err := fetchResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	exporter, err := newExporter(ctx, cfg, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter, sdktrace.WithBatchTimeout(fetchBatchTimeout))),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return p, nil
}

func collectorEndpoint(cfg config.TracingConfig) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

// fetchSampler samples root fetch spans by ratio and follows the caller's
// decision when a parent span is present.
func fetchSampler(rate float64) (sdktrace.Sampler, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", rate)
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate)), nil
}

// fetchResource names the service. An explicit name wins over
// OTEL_SERVICE_NAME, which wins over the default.
func fetchResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(defaultServiceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	}
	if serviceName != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceName(serviceName)))
	}
	return resource.New(ctx, opts...)
}

// Tracer returns the tracer for fetch spans, a no-op one when disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider().Tracer(scopeName)
	}
	return p.tp.Tracer(scopeName)
}

// ShouldPropagate reports whether traceparent is sent to the identity endpoint.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Exporting reports whether spans leave the process.
func (p *Provider) Exporting() bool {
	return p != nil && p.tp != nil
}

// Shutdown flushes buffered spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Exporting() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func newExporter(ctx context.Context, cfg config.TracingConfig, endpoint string) (sdktrace.SpanExporter, error) {
	switch protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol)); protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use grpc or http", protocol)
	}
}
