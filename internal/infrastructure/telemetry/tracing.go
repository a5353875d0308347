package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of service spans
const TracerName = "supplier-portal"

// Span attribute keys
const (
	SpanRunID       = attribute.Key("sync.run_id")
	SpanTrigger     = attribute.Key("sync.trigger")
	SpanProviderNIT = attribute.Key("provider.nit")
	SpanOrderID     = attribute.Key("order.id")
	SpanOrderNumber = attribute.Key("order.number")
	SpanDecision    = attribute.Key("order.decision")
	SpanERPPage     = attribute.Key("siesa.page")
	SpanERPRows     = attribute.Key("siesa.rows")
	SpanMessageType = attribute.Key("whatsapp.type")
)

// StartServiceSpan starts an internal span named "service.operation" on the
// global provider. The caller ends it.
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartClientSpan starts a client span for a call to an external system,
// e.g. "siesa.fetch_page" or "whatsapp.send"
func StartClientSpan(ctx context.Context, system, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, system+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
