package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// groupOutcome is the result of reconciling one (provider, document) group
type groupOutcome int

const (
	groupSkipped groupOutcome = iota
	groupCreated
	groupUpdated
)

// SyncService pulls the latest ERP batch and reconciles it into providers,
// purchase orders and order lines.
//
// Each pass is Discovering -> Grouping -> Reconciling -> Logging. Groups are
// reconciled one at a time and independently: a failing group is logged and
// the pass continues. Writes within a group are not transactional.
type SyncService struct {
	source    integration.ERPSource
	providers procurement.ProviderRepository
	orders    procurement.PurchaseOrderRepository
	lines     procurement.OrderLineRepository
	runs      procurement.SyncRunRepository
	archive   BatchArchive
	lock      PassLock
	location  *time.Location
	hashCost  int
	now       func() time.Time
	metrics   *telemetry.PipelineMetrics
	logger    *zap.Logger
}

// SyncServiceOption is a functional option for configuring SyncService
type SyncServiceOption func(*SyncService)

// WithBatchArchive stores every fetched batch
func WithBatchArchive(archive BatchArchive) SyncServiceOption {
	return func(s *SyncService) {
		s.archive = archive
	}
}

// WithPassLock serializes passes with other processes sharing the database
func WithPassLock(lock PassLock) SyncServiceOption {
	return func(s *SyncService) {
		s.lock = lock
	}
}

// WithSyncMetrics records every pass on the pipeline instruments
func WithSyncMetrics(metrics *telemetry.PipelineMetrics) SyncServiceOption {
	return func(s *SyncService) {
		s.metrics = metrics
	}
}

// WithLocation sets the timezone ERP timestamps are expressed in
func WithLocation(loc *time.Location) SyncServiceOption {
	return func(s *SyncService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) SyncServiceOption {
	return func(s *SyncService) {
		s.now = now
	}
}

// WithPasswordHashCost sets the bcrypt cost for placeholder provider credentials
func WithPasswordHashCost(cost int) SyncServiceOption {
	return func(s *SyncService) {
		s.hashCost = cost
	}
}

// NewSyncService creates a new SyncService
func NewSyncService(
	source integration.ERPSource,
	providers procurement.ProviderRepository,
	orders procurement.PurchaseOrderRepository,
	lines procurement.OrderLineRepository,
	runs procurement.SyncRunRepository,
	logger *zap.Logger,
	opts ...SyncServiceOption,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncService{
		source:    source,
		providers: providers,
		orders:    orders,
		lines:     lines,
		runs:      runs,
		location:  time.UTC,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
		logger:    logger.Named("sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sync pass and records it as a SyncRun.
// The returned error is non-nil when the batch could not be fetched or the run
// could not be recorded; the result is then still populated. Only when the
// pass lock is held elsewhere does Run return ErrSyncLocked and no result.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "run", telemetry.SpanTrigger.String(string(req.Trigger)))
	defer span.End()

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if err != nil {
			if !errors.Is(err, ErrSyncLocked) {
				err = fmt.Errorf("%w: %w", ErrSyncLocked, err)
			}
			s.logger.Warn("Sync pass skipped, lock not acquired", zap.String("trigger", string(req.Trigger)), zap.Error(err))
			telemetry.RecordError(span, err)
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release sync pass lock", zap.Error(err))
			}
		}()
	}

	run := procurement.NewSyncRun(req.Trigger, s.now())
	span.SetAttributes(telemetry.SpanRunID.String(run.ID.String()))
	if req.NextScheduledAt != nil {
		run.ScheduleNext(*req.NextScheduledAt)
	}

	s.logger.Info("Starting incremental sync",
		zap.String("run_id", run.ID.String()),
		zap.String("trigger", string(run.Trigger)),
	)

	watermark, err := s.watermark(ctx)
	if err != nil {
		return s.finishFailed(ctx, run, watermark, fmt.Errorf("%w: %v", ErrSyncWatermarkUnavailable, err))
	}

	// Discovering
	batch, err := s.source.FetchLatestBatch(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.finishFailed(ctx, run, watermark, fmt.Errorf("%w: %v", ErrSyncFetchFailed, err))
	}
	if len(batch) == 0 {
		s.logger.Info("No new ERP records")
	}
	s.archiveBatch(ctx, run, batch)

	// Grouping
	keys, groups := groupLines(batch)

	// Reconciling
	counts := procurement.SyncCounts{RecordsProcessed: len(batch)}
	for _, key := range keys {
		outcome, err := s.reconcileGroup(ctx, groups[key], watermark)
		if err != nil {
			counts.GroupsFailed++
			s.logger.Error("Failed to reconcile order group",
				zap.String("group", key),
				zap.Int("lines", len(groups[key])),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case groupCreated:
			counts.OrdersCreated++
		case groupUpdated:
			counts.OrdersUpdated++
		default:
			counts.GroupsSkipped++
		}
	}

	// Logging
	run.Succeed(s.now(), counts)
	s.metrics.RecordSyncRun(ctx, run.Trigger, run.Status, counts, run.Duration())
	span.SetAttributes(
		attribute.Int("sync.records_processed", counts.RecordsProcessed),
		attribute.Int("sync.orders_created", counts.OrdersCreated),
		attribute.Int("sync.orders_updated", counts.OrdersUpdated),
	)

	result := s.result(run, watermark)
	if err := s.runs.Create(ctx, run); err != nil {
		telemetry.RecordError(span, err)
		return result, fmt.Errorf("%w: %v", ErrSyncRunNotRecorded, err)
	}

	s.logger.Info("Sync finished",
		zap.String("run_id", run.ID.String()),
		zap.Int("records_processed", counts.RecordsProcessed),
		zap.Int("orders_created", counts.OrdersCreated),
		zap.Int("orders_updated", counts.OrdersUpdated),
		zap.Int("groups_skipped", counts.GroupsSkipped),
		zap.Int("groups_failed", counts.GroupsFailed),
		zap.Duration("duration", run.Duration()),
	)
	return result, nil
}

// History returns the most recent sync runs, newest first
func (s *SyncService) History(ctx context.Context, limit int) ([]SyncRunResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.runs.FindRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, ToSyncRunResponse(run))
	}
	return resp, nil
}

// LastSuccessful returns the run that currently defines the watermark, or nil if none exists
func (s *SyncService) LastSuccessful(ctx context.Context) (*SyncRunResponse, error) {
	run, err := s.runs.FindLastSuccessful(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := ToSyncRunResponse(*run)
	return &resp, nil
}

// watermark returns the end time of the last successful run, or the start of
// the current day when no run has succeeded yet.
func (s *SyncService) watermark(ctx context.Context) (time.Time, error) {
	run, err := s.runs.FindLastSuccessful(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		now := s.now().In(s.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if run.EndedAt == nil {
		return run.StartedAt, nil
	}
	return *run.EndedAt, nil
}

// reconcileGroup applies one (provider, document) group
func (s *SyncService) reconcileGroup(ctx context.Context, group []integration.RawLine, watermark time.Time) (groupOutcome, error) {
	first := group[0]

	approvedAt := ParseERPTime(first.ApprovedAt, s.location)
	if !approvedAt.After(watermark) {
		return groupSkipped, nil
	}

	provider, err := s.resolveProvider(ctx, first)
	if err != nil {
		return groupSkipped, err
	}

	order, created, err := s.resolveOrder(ctx, provider, first)
	if err != nil {
		return groupSkipped, err
	}

	for _, raw := range group {
		mapped := MapLine(raw)
		exists, err := s.lines.ExistsByOrderAndReference(ctx, order.ID, mapped.Reference)
		if err != nil {
			return groupSkipped, fmt.Errorf("check line %q: %w", mapped.Reference, err)
		}
		if exists {
			continue
		}
		line, err := procurement.NewOrderLine(order.ID, mapped.Reference, mapped.Description, mapped.Amounts)
		if err != nil {
			return groupSkipped, err
		}
		if err := s.lines.Create(ctx, line); err != nil {
			return groupSkipped, fmt.Errorf("create line %q: %w", mapped.Reference, err)
		}
	}

	current, err := s.lines.FindByOrder(ctx, order.ID)
	if err != nil {
		return groupSkipped, fmt.Errorf("load lines: %w", err)
	}
	order.RecomputeTotals(current)
	if err := s.orders.UpdateTotals(ctx, order.ID, order.Subtotal, order.Tax, order.Total); err != nil {
		return groupSkipped, fmt.Errorf("update totals: %w", err)
	}

	if created {
		return groupCreated, nil
	}
	return groupUpdated, nil
}

func (s *SyncService) resolveProvider(ctx context.Context, first integration.RawLine) (*procurement.Provider, error) {
	provider, err := s.providers.FindByNIT(ctx, first.ProviderNIT)
	if err == nil {
		return provider, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("find provider: %w", err)
	}

	hash, err := s.placeholderPasswordHash()
	if err != nil {
		return nil, err
	}
	provider, err = procurement.NewPlaceholderProvider(first.ProviderNIT, cleanText(first.ProviderName), hash)
	if err != nil {
		return nil, err
	}
	if err := s.providers.Create(ctx, provider); err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	s.logger.Info("Created placeholder provider",
		zap.String("nit", provider.NIT),
		zap.String("legal_name", provider.LegalName),
	)
	return provider, nil
}

func (s *SyncService) resolveOrder(ctx context.Context, provider *procurement.Provider, first integration.RawLine) (*procurement.PurchaseOrder, bool, error) {
	order, err := s.orders.FindByProviderAndDocument(ctx, provider.ID, first.DocumentNumber)
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, fmt.Errorf("find order: %w", err)
	}

	order, err = procurement.NewPurchaseOrder(provider.ID, first.DocumentNumber, MapHeader(first, s.location))
	if err != nil {
		return nil, false, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}
	return order, true, nil
}

// placeholderPasswordHash hashes a random secret that is never stored or shown
func (s *SyncService) placeholderPasswordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder password: %w", err)
	}
	return string(hash), nil
}

func (s *SyncService) archiveBatch(ctx context.Context, run *procurement.SyncRun, batch []integration.RawLine) {
	if s.archive == nil || len(batch) == 0 {
		return
	}
	if err := s.archive.Archive(ctx, run.ID, run.StartedAt, batch); err != nil {
		s.logger.Warn("Failed to archive ERP batch",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *SyncService) finishFailed(ctx context.Context, run *procurement.SyncRun, watermark time.Time, cause error) (*SyncResult, error) {
	run.Fail(s.now(), cause)
	s.metrics.RecordSyncRun(ctx, run.Trigger, run.Status, run.Counts, run.Duration())
	s.logger.Error("Sync failed",
		zap.String("run_id", run.ID.String()),
		zap.Error(cause),
	)

	result := s.result(run, watermark)
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Error("Failed to record failed sync run", zap.Error(err))
		return result, errors.Join(cause, fmt.Errorf("%w: %v", ErrSyncRunNotRecorded, err))
	}
	return result, cause
}

func (s *SyncService) result(run *procurement.SyncRun, watermark time.Time) *SyncResult {
	result := &SyncResult{
		RunID:      run.ID,
		Success:    run.IsSuccessful(),
		Status:     run.Status,
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		Watermark:  watermark,
		SyncCounts: run.Counts,
		Error:      run.ErrorMessage,
	}
	if run.EndedAt != nil {
		result.EndedAt = *run.EndedAt
	}
	return result
}

// groupLines groups a batch by (provider NIT, document number), keeping the
// order in which groups first appear.
func groupLines(batch []integration.RawLine) ([]string, map[string][]integration.RawLine) {
	keys := make([]string, 0)
	groups := make(map[string][]integration.RawLine)
	for _, line := range batch {
		key := line.GroupKey()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], line)
	}
	return keys, groups
}
