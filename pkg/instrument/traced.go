package instrument

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer name used unless WithTracerName overrides it.
const defaultTracerName = "loom"

// TraceConfig configures a traced computation.
type TraceConfig struct {
	// TracerName names the tracer obtained from the global provider.
	// Defaults to "loom".
	TracerName string

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// tracer is set by Traced from the global provider.
	tracer trace.Tracer
}

// TraceOption configures a traced computation.
type TraceOption func(*TraceConfig)

// WithTracerName overrides the default "loom" tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// Traced wraps a computation in an OpenTelemetry span. The returned
// function is suitable as an effect or computed getter: each call opens a
// span named name, runs fn, and closes the span. A panic in fn is recorded
// on the span with an error status and re-raised.
//
// The tracer resolves from the global provider at wrap time, so configure
// otel.SetTracerProvider before calling Traced.
func Traced(name string, fn func() any, opts ...TraceOption) func() any {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return func() any {
		_, span := config.tracer.Start(
			context.Background(),
			name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(config.Attributes...),
		)
		defer span.End()

		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				panic(r)
			}
		}()

		result := fn()
		span.SetStatus(codes.Ok, "")
		return result
	}
}
