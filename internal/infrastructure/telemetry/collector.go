// Package telemetry sets up the OpenTelemetry traces, metrics and logs
// pipelines, the Pyroscope profiler, and the instruments the portal records.
// Every signal is optional; a disabled signal falls back to the global no-op
// provider so callers never branch on configuration.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceVersion is reported on every exported signal
var ServiceVersion = "dev"

// shutdownTimeout bounds the final flush of each provider
const shutdownTimeout = 10 * time.Second

// Collector is the OTLP gRPC endpoint shared by all signals
type Collector struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

func (c Collector) resource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(c.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// shutdown runs stop with a bounded deadline derived from ctx
func shutdown(ctx context.Context, signal string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	return nil
}
