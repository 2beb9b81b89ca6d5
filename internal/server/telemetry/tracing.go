package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "pandachat"

// TracerName is the instrumentation scope used by the HTTP layer.
const TracerName = "github.com/dmitrijs2005/pandachat/internal/server/httpapi"

// NewTracerProvider exports spans as JSON lines to w.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(semconv.ServiceName(ServiceName))

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// InitTracing installs a global tracer provider writing to a rotating file
// and returns its shutdown function. An empty path leaves the global no-op
// provider in place.
func InitTracing(path string) (func(context.Context) error, error) {
	if path == "" {
		return func(context.Context) error { return nil }, nil
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	tp, err := NewTracerProvider(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), file.Close())
	}, nil
}

// Tracer returns the HTTP layer tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
