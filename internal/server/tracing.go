package server

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "lessonmark"

// tracing holds the tracer provider of one server. Providers are not
// installed globally so several servers can coexist in one process.
type tracing struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

func newTracing(enabled bool, w io.Writer) (*tracing, error) {
	if !enabled {
		provider := noop.NewTracerProvider()
		return &tracing{
			provider: provider,
			tracer:   provider.Tracer(serviceName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace exporter")
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	return &tracing{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		shutdown: provider.Shutdown,
	}, nil
}

func (t *tracing) middleware() gin.HandlerFunc {
	return otelgin.Middleware(
		serviceName,
		otelgin.WithTracerProvider(t.provider),
		otelgin.WithPropagators(propagation.TraceContext{}),
	)
}

func (t *tracing) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
