package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/supplier-portal/internal/domain/procurement"
)

// PipelineMetrics counts what the sync and notification passes do.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	syncRuns      metric.Int64Counter
	syncRecords   metric.Int64Counter
	syncOrders    metric.Int64Counter
	syncGroups    metric.Int64Counter
	syncDuration  metric.Float64Histogram
	notifications metric.Int64Counter
	pending       metric.Int64Gauge
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	counter := func(name, desc, unit string, errs *[]error) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		*errs = append(*errs, err)
		return c
	}

	var errs []error
	m := &PipelineMetrics{
		syncRuns:      counter("portal_sync_runs_total", "Sync passes by outcome", "{runs}", &errs),
		syncRecords:   counter("portal_sync_records_total", "ERP lines fetched by sync passes", "{lines}", &errs),
		syncOrders:    counter("portal_sync_orders_total", "Orders created or updated by sync passes", "{orders}", &errs),
		syncGroups:    counter("portal_sync_groups_total", "Order groups skipped or failed by sync passes", "{groups}", &errs),
		notifications: counter("portal_notifications_total", "New-order notifications by outcome", "{messages}", &errs),
	}

	var err error
	m.syncDuration, err = meter.Float64Histogram("portal_sync_duration_seconds",
		metric.WithDescription("Sync pass duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SyncDurationBuckets...),
	)
	errs = append(errs, err)
	m.pending, err = meter.Int64Gauge("portal_notifications_pending",
		metric.WithDescription("Orders waiting for their new-order notification"),
		metric.WithUnit("{orders}"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func with(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

// RecordSyncRun records one finished sync pass
func (m *PipelineMetrics) RecordSyncRun(ctx context.Context, trigger procurement.SyncTrigger, status procurement.SyncStatus, counts procurement.SyncCounts, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.Add(ctx, 1, with(AttrTrigger.String(string(trigger)), AttrStatus.String(string(status))))
	m.syncRecords.Add(ctx, int64(counts.RecordsProcessed))
	m.syncOrders.Add(ctx, int64(counts.OrdersCreated), with(AttrOutcome.String("created")))
	m.syncOrders.Add(ctx, int64(counts.OrdersUpdated), with(AttrOutcome.String("updated")))
	m.syncGroups.Add(ctx, int64(counts.GroupsSkipped), with(AttrOutcome.String("skipped")))
	m.syncGroups.Add(ctx, int64(counts.GroupsFailed), with(AttrOutcome.String("failed")))
	m.syncDuration.Record(ctx, d.Seconds(), with(AttrStatus.String(string(status))))
}

// RecordDispatch records one finished notification pass
func (m *PipelineMetrics) RecordDispatch(ctx context.Context, pending, sent, failed, skipped int) {
	if m == nil {
		return
	}
	m.pending.Record(ctx, int64(pending))
	m.notifications.Add(ctx, int64(sent), with(AttrOutcome.String("sent")))
	m.notifications.Add(ctx, int64(failed), with(AttrOutcome.String("failed")))
	m.notifications.Add(ctx, int64(skipped), with(AttrOutcome.String("skipped")))
}
