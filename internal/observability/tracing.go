package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const defaultShutdownTimeout = 5 * time.Second

// Config selects the observability setup.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Trace records spans and logs each finished span at debug level.
	Trace bool
	// Logger receives span records. Required when Trace is set.
	Logger *slog.Logger
}

// Providers holds the initialized tracing provider.
type Providers struct {
	TracerProvider trace.TracerProvider

	// Shutdown flushes pending spans. Must be called before process exit.
	Shutdown func(ctx context.Context) error
}

// Init builds the tracer provider. Without Trace a no-op provider is
// returned with zero overhead.
func Init(cfg Config) (Providers, error) {
	if !cfg.Trace {
		return Providers{
			TracerProvider: nooptrace.NewTracerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	if cfg.Logger == nil {
		return Providers{}, errors.New("observability: tracing requires a logger")
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return Providers{}, fmt.Errorf("build otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(NewLogExporter(cfg.Logger)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return Providers{TracerProvider: tp, Shutdown: shutdown}, nil
}

// LogExporter is an [sdktrace.SpanExporter] that writes one debug record per
// finished span.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates a LogExporter writing to logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans logs each span's name, duration and attributes.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		args := []any{
			"span", s.Name(),
			"duration", s.EndTime().Sub(s.StartTime()),
			attrTraceID, s.SpanContext().TraceID().String(),
		}
		for _, kv := range s.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		e.logger.DebugContext(ctx, "span finished", args...)
	}
	return nil
}

// Shutdown is a no-op; the logger is owned by the caller.
func (e *LogExporter) Shutdown(context.Context) error { return nil }
