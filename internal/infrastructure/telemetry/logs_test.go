package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memoryExporter keeps exported log records in memory
type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewZapOTELCore_DisabledProvider(t *testing.T) {
	var nilProvider *LoggerProvider
	core := NewZapOTELCore("supplier-portal", nilProvider, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	lp, err := NewLoggerProvider(context.Background(), LogsConfig{}, zap.NewNop())
	require.NoError(t, err)
	core = NewZapOTELCore("supplier-portal", lp, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewBridgedLogger(t *testing.T) {
	exporter := &memoryExporter{}
	lp := NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(exporter))
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	baseCore, observed := observer.New(zapcore.DebugLevel)
	logger := NewBridgedLogger(zap.New(baseCore), NewZapOTELCore("supplier-portal", lp, zapcore.InfoLevel))

	logger.Debug("debug only reaches stdout")
	logger.Info("Sync run completed", zap.String("run_id", "r-1"))
	logger.With(zap.String("component", "scheduler")).Warn("Tick skipped")

	assert.Equal(t, 3, observed.Len())
	assert.Equal(t, []string{"Sync run completed", "Tick skipped"}, exporter.bodies())

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	assert.Equal(t, otellog.SeverityInfo, exporter.records[0].Severity())
	assert.Equal(t, otellog.SeverityWarn, exporter.records[1].Severity())
}

func TestNewZapOTELCore_Level(t *testing.T) {
	lp := NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(&memoryExporter{}))
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core := NewZapOTELCore("supplier-portal", lp, zapcore.WarnLevel)
	tests := []struct {
		level zapcore.Level
		want  bool
	}{
		{zapcore.DebugLevel, false},
		{zapcore.InfoLevel, false},
		{zapcore.WarnLevel, true},
		{zapcore.ErrorLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, core.Enabled(tt.level))
		})
	}
	assert.False(t, core.With([]zapcore.Field{zap.String("k", "v")}).Enabled(zapcore.InfoLevel))
}
