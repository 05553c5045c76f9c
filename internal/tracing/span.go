package tracing

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartFetchSpan starts a client span around a call to the identity endpoint.
// Only scheme, host and path of the endpoint are recorded.
func StartFetchSpan(ctx context.Context, tracer trace.Tracer, endpoint string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "jwt fetch",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.String("http.request.method", http.MethodPost))
	if u, err := url.Parse(endpoint); err == nil {
		span.SetAttributes(
			attribute.String("server.address", u.Hostname()),
			attribute.String("url.path", u.Path),
		)
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
