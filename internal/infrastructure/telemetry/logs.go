package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig enables the zap to OTLP log bridge
type LogsConfig struct {
	Collector
	Enabled bool
}

// LoggerProvider owns the SDK log provider installed as the global one
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
}

// NewLoggerProvider installs an OTLP log pipeline with a batch processor.
// Disabled config returns a provider whose bridge core drops everything.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("OTEL log export disabled")
		return &LoggerProvider{}, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	lp := &LoggerProvider{provider: sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)}
	global.SetLoggerProvider(lp.provider)
	logger.Info("OTEL log export enabled", zap.String("collector", cfg.Endpoint))
	return lp, nil
}

// NewLoggerProviderWithProcessor wraps an explicit processor. The result is not installed globally.
func NewLoggerProviderWithProcessor(processor sdklog.Processor) *LoggerProvider {
	return &LoggerProvider{provider: sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))}
}

func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdown(ctx, "logger", lp.provider.Shutdown)
}

func (lp *LoggerProvider) IsEnabled() bool {
	return lp != nil && lp.provider != nil
}

// NewZapOTELCore returns a core that forwards entries at or above level to
// the provider. A disabled provider yields a no-op core.
func NewZapOTELCore(serviceName string, lp *LoggerProvider, level zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(serviceName, otelzap.WithLoggerProvider(lp.provider))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// NewBridgedLogger tees base with the OTEL core so every entry reaches both.
func NewBridgedLogger(base *zap.Logger, otelCore zapcore.Core) *zap.Logger {
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	}))
}
