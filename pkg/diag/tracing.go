package diag

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for the tracing sink.
const defaultTracerName = "paramstate"

// TracingConfig configures the OpenTelemetry sink.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "paramstate").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// IncludeValues records migrated values as span attributes.
	// Values may contain user data - disabled by default.
	IncludeValues bool

	// Context is the parent context for spans (default: background).
	Context context.Context
}

// TracingOption configures the OpenTelemetry sink.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithIncludeValues enables recording migrated values on spans.
func WithIncludeValues(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeValues = include
	}
}

// WithParentContext sets the context spans are started from, e.g. the
// request context of a live session.
func WithParentContext(ctx context.Context) TracingOption {
	return func(c *TracingConfig) {
		c.Context = ctx
	}
}

// Tracing records each diagnostic as a short span.
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given. Configure it in main() before creating the sink:
//
//	otel.SetTracerProvider(tp)
//	sink := diag.NewTracing(diag.WithTracerName("my-app"))
type Tracing struct {
	config TracingConfig
}

var _ Sink = (*Tracing)(nil)

// NewTracing creates a tracing sink.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &Tracing{config: config}
}

func (t *Tracing) span(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := t.config.Tracer.Start(t.config.Context, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return span
}

// UnregisteredParameter implements Sink.
func (t *Tracing) UnregisteredParameter(name string) {
	span := t.span("paramstate.unregistered_parameter",
		attribute.String("paramstate.param", name))
	span.SetStatus(codes.Error, "parameter not registered")
	span.End()
}

// MigrationApplied implements Sink.
func (t *Tracing) MigrationApplied(name string, count int, from, to any) {
	attrs := []attribute.KeyValue{
		attribute.String("paramstate.param", name),
		attribute.Int("paramstate.migration_count", count),
	}
	if t.config.IncludeValues {
		attrs = append(attrs,
			attribute.String("paramstate.from", fmt.Sprintf("%v", from)),
			attribute.String("paramstate.to", fmt.Sprintf("%v", to)),
		)
	}
	span := t.span("paramstate.migration", attrs...)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// BindingError implements Sink.
func (t *Tracing) BindingError(kind, key string, err error) {
	span := t.span("paramstate.binding_error",
		attribute.String("paramstate.kind", kind),
		attribute.String("paramstate.key", key))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
