package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "shredr"

// StartWebhookSpan starts a span for one inbound webhook delivery.
func StartWebhookSpan(ctx context.Context, bytes int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "webhook.ingest",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int("webhook.bytes", bytes)),
	)
}

// StartBridgeSpan starts a span for an event received from the message bus.
func StartBridgeSpan(ctx context.Context, subject string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "relay.bridge",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", subject)),
	)
}

// StartUpstreamSpan starts a span for a call to the webhook provider API.
func StartUpstreamSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "helius."+op,
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
