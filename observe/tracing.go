package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/handling"
)

const tracerName = "github.com/bjaus/handling"

// Tracing returns router hooks that wrap each Handle call in a span. The
// span is started when the message is received, so handlers see it in
// their context, and ended when Handle returns. A nil tp uses the global
// provider.
func Tracing(tp trace.TracerProvider) []handling.Option {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)

	return []handling.Option{
		handling.WithOnReceive(func(ctx context.Context, msg handling.Message) context.Context {
			ctx, _ = tracer.Start(ctx, "handle "+msg.Category().String(),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.message.id", msg.ID()),
					attribute.String("handling.category", msg.Category().String()),
					attribute.String("handling.payload_type", payloadLabel(msg)),
				),
			)
			return ctx
		}),
		handling.WithOnDispatch(func(ctx context.Context, _ handling.Message, m *handling.Member) {
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("handling.member", m.String()),
				attribute.Int("handling.priority", m.Priority()),
			)
		}),
		handling.WithOnComplete(func(ctx context.Context, _ handling.Message, m *handling.Member, err error) {
			span := trace.SpanFromContext(ctx)
			defer span.End()

			if m == nil {
				span.SetAttributes(attribute.Bool("handling.unhandled", true))
			}
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.String("handling.error_class", handling.Classify(err).String()))
				span.SetStatus(codes.Error, err.Error())
				return
			}
			span.SetStatus(codes.Ok, "")
		}),
	}
}
