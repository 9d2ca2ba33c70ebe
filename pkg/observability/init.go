package observability

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
	// Output receives exported spans, stdout when nil
	Output       io.Writer
	BatchTimeout time.Duration
}

// DefaultConfig returns a tracing configuration sampling every span
func DefaultConfig(serviceName string) TracingConfig {
	return TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		SamplingRate:   1.0,
		BatchTimeout:   time.Second,
	}
}

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// Initialize installs an SDK tracer provider exporting to config.Output as
// the global provider. A previously installed provider is shut down.
func Initialize(ctx context.Context, config TracingConfig) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if config.Output != nil {
		opts = append(opts, stdouttrace.WithWriter(config.Output))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	if config.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	batchTimeout := config.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)

	mu.Lock()
	previous := provider
	provider = tp
	mu.Unlock()

	otel.SetTracerProvider(tp)
	if previous != nil {
		return previous.Shutdown(ctx)
	}
	return nil
}

// Shutdown flushes pending spans and stops the installed provider
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider = nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer: %w", err)
	}
	return nil
}

// RecordRows adds n built rows to the fixedseg.rows_built counter of the
// global meter provider
func RecordRows(ctx context.Context, schema string, n int64) {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"fixedseg.rows_built",
		metric.WithDescription("Rows written into segment files"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(attribute.String("schema", schema)))
}
