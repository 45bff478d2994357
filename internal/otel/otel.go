package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/graphexec/internal/eventbus"
	events "github.com/hanpama/graphexec/internal/events"
	execid "github.com/hanpama/graphexec/internal/execid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers for plan
// compilation and execution spans. If endpoint is empty, no telemetry is
// configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("graphexec")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer       trace.Tracer
	compileSpans sync.Map // execution id -> trace.Span
	execSpans    sync.Map // execution id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
		id, _ := execid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql.compile")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.Int64("graphql.plan.signature", int64(e.Signature)),
		)
		s.compileSpans.Store(id, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.CompileFinish) {
		id, _ := execid.FromContext(ctx)
		v, ok := s.compileSpans.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Bool("graphql.plan.cache_hit", e.CacheHit))
		if e.Err != nil {
			span.SetAttributes(attribute.String("graphql.compile.error", e.Err.Error()))
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ExecuteStart) {
		id, _ := execid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql.execute")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.execSpans.Store(id, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ExecuteFinish) {
		id, _ := execid.FromContext(ctx)
		v, ok := s.execSpans.LoadAndDelete(id)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", e.ErrorCount))
		span.End()
	})
}
