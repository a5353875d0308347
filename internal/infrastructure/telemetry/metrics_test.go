package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/procurement"
)

// newTestMeterProvider returns a provider backed by a manual reader
func newTestMeterProvider(t *testing.T) (*MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// sumWhere adds up the int64 sum points whose attributes contain kv
func sumWhere(t *testing.T, m metricdata.Metrics, kv ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, want := range kv {
			got, found := dp.Attributes.Value(want.Key)
			if !found || got != want.Value {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

// =============================================================================
// MeterProvider
// =============================================================================

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{
		Collector: Collector{Endpoint: "localhost:4317", Insecure: true, ServiceName: "supplier-portal-test"},
		Enabled:   true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}

// =============================================================================
// PipelineMetrics
// =============================================================================

func TestNewPipelineMetrics_NilMeter(t *testing.T) {
	m, err := NewPipelineMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, m)
}

func TestPipelineMetrics_NilReceiver(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordSyncRun(context.Background(), procurement.SyncTriggerManual, procurement.SyncStatusSuccess, procurement.SyncCounts{}, time.Second)
		m.RecordDispatch(context.Background(), 1, 1, 0, 0)
	})
}

func TestPipelineMetrics_RecordSyncRun(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	m, err := NewPipelineMetrics(mp.Meter(TracerName))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordSyncRun(ctx, procurement.SyncTriggerScheduled, procurement.SyncStatusSuccess, procurement.SyncCounts{
		RecordsProcessed: 3,
		OrdersCreated:    1,
		OrdersUpdated:    1,
		GroupsSkipped:    2,
	}, 1500*time.Millisecond)
	m.RecordSyncRun(ctx, procurement.SyncTriggerManual, procurement.SyncStatusFailed, procurement.SyncCounts{GroupsFailed: 1}, time.Second)

	metrics := collect(t, reader)
	runs := metrics["portal_sync_runs_total"]
	assert.Equal(t, int64(2), sumWhere(t, runs))
	assert.Equal(t, int64(1), sumWhere(t, runs, AttrTrigger.String("scheduled"), AttrStatus.String("exitosa")))
	assert.Equal(t, int64(1), sumWhere(t, runs, AttrTrigger.String("manual"), AttrStatus.String("fallida")))

	assert.Equal(t, int64(3), sumWhere(t, metrics["portal_sync_records_total"]))
	assert.Equal(t, int64(1), sumWhere(t, metrics["portal_sync_orders_total"], AttrOutcome.String("created")))
	assert.Equal(t, int64(1), sumWhere(t, metrics["portal_sync_orders_total"], AttrOutcome.String("updated")))
	assert.Equal(t, int64(2), sumWhere(t, metrics["portal_sync_groups_total"], AttrOutcome.String("skipped")))
	assert.Equal(t, int64(1), sumWhere(t, metrics["portal_sync_groups_total"], AttrOutcome.String("failed")))

	durations := metrics["portal_sync_duration_seconds"].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range durations.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestPipelineMetrics_RecordDispatch(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	m, err := NewPipelineMetrics(mp.Meter(TracerName))
	require.NoError(t, err)

	m.RecordDispatch(context.Background(), 4, 2, 1, 1)

	metrics := collect(t, reader)
	sent := metrics["portal_notifications_total"]
	assert.Equal(t, int64(2), sumWhere(t, sent, AttrOutcome.String("sent")))
	assert.Equal(t, int64(1), sumWhere(t, sent, AttrOutcome.String("failed")))
	assert.Equal(t, int64(1), sumWhere(t, sent, AttrOutcome.String("skipped")))

	pending := metrics["portal_notifications_pending"].Data.(metricdata.Gauge[int64])
	require.Len(t, pending.DataPoints, 1)
	assert.Equal(t, int64(4), pending.DataPoints[0].Value)
}
