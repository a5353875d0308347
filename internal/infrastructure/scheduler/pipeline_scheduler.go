package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/domain/procurement"
)

// ---------------------------------------------------------------------------
// Worker Interfaces
// ---------------------------------------------------------------------------

// SyncRunner runs one ERP sync pass
type SyncRunner interface {
	Run(ctx context.Context, req appprocurement.SyncRequest) (*appprocurement.SyncResult, error)
}

// NotificationDispatcher runs one new-order notification pass
type NotificationDispatcher interface {
	DispatchPending(ctx context.Context) (*appprocurement.DispatchResult, error)
}

// ---------------------------------------------------------------------------
// PipelineSchedulerConfig
// ---------------------------------------------------------------------------

// Mode describes which workers a tick runs
type Mode string

const (
	ModeSyncAndNotify Mode = "sync+notify"
	ModeNotifyOnly    Mode = "notify-only"
	ModeSyncOnly      Mode = "sync-only"
)

// PipelineSchedulerConfig holds configuration for the pipeline scheduler
type PipelineSchedulerConfig struct {
	// Interval is the time between two ticks
	Interval time.Duration
	// SyncEnabled runs the sync worker on every tick
	SyncEnabled bool
	// NotifyEnabled runs the notification worker on every tick
	NotifyEnabled bool
	// RunOnStart fires one tick immediately when the scheduler starts
	RunOnStart bool
}

// DefaultPipelineSchedulerConfig returns default configuration
func DefaultPipelineSchedulerConfig() PipelineSchedulerConfig {
	return PipelineSchedulerConfig{
		Interval:      5 * time.Minute,
		SyncEnabled:   true,
		NotifyEnabled: true,
		RunOnStart:    true,
	}
}

// Validate validates the configuration
func (c *PipelineSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if !c.SyncEnabled && !c.NotifyEnabled {
		return ErrNoWorkersEnabled
	}
	return nil
}

// Mode returns the worker combination the configuration runs
func (c *PipelineSchedulerConfig) Mode() Mode {
	switch {
	case c.SyncEnabled && c.NotifyEnabled:
		return ModeSyncAndNotify
	case c.SyncEnabled:
		return ModeSyncOnly
	default:
		return ModeNotifyOnly
	}
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is a snapshot of the scheduler state
type Status struct {
	Running           bool                           `json:"running"`
	TickInProgress    bool                           `json:"tick_in_progress"`
	Mode              Mode                           `json:"mode"`
	Interval          string                         `json:"interval"`
	LastTickStartedAt *time.Time                     `json:"last_tick_started_at,omitempty"`
	LastTickEndedAt   *time.Time                     `json:"last_tick_ended_at,omitempty"`
	NextTickAt        *time.Time                     `json:"next_tick_at,omitempty"`
	SkippedTicks      int64                          `json:"skipped_ticks"`
	LastSync          *appprocurement.SyncResult     `json:"last_sync,omitempty"`
	LastDispatch      *appprocurement.DispatchResult `json:"last_dispatch,omitempty"`
}

// ---------------------------------------------------------------------------
// PipelineScheduler
// ---------------------------------------------------------------------------

// PipelineScheduler drives the sync and notification workers on a fixed interval.
//
// Ticks are single-flight: a tick that fires while another is still running is
// skipped, not queued. Each worker runs inside its own failure boundary so an
// error or panic in one never stops the other.
type PipelineScheduler struct {
	config   PipelineSchedulerConfig
	sync     SyncRunner
	notifier NotificationDispatcher
	logger   *zap.Logger
	now      func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	ticking atomic.Bool
	skipped atomic.Int64

	statusMu          sync.RWMutex
	lastTickStartedAt *time.Time
	lastTickEndedAt   *time.Time
	nextTickAt        *time.Time
	lastSync          *appprocurement.SyncResult
	lastDispatch      *appprocurement.DispatchResult
}

// PipelineSchedulerOption is a functional option for configuring PipelineScheduler
type PipelineSchedulerOption func(*PipelineScheduler)

// WithSchedulerClock overrides the scheduler's time source
func WithSchedulerClock(now func() time.Time) PipelineSchedulerOption {
	return func(s *PipelineScheduler) {
		s.now = now
	}
}

// NewPipelineScheduler creates a new pipeline scheduler.
// A worker may be nil only when the configuration disables it.
func NewPipelineScheduler(
	config PipelineSchedulerConfig,
	syncRunner SyncRunner,
	notifier NotificationDispatcher,
	logger *zap.Logger,
	opts ...PipelineSchedulerOption,
) (*PipelineScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.SyncEnabled && syncRunner == nil {
		return nil, fmt.Errorf("%w: sync runner is required", ErrInvalidConfig)
	}
	if config.NotifyEnabled && notifier == nil {
		return nil, fmt.Errorf("%w: notification dispatcher is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &PipelineScheduler{
		config:   config,
		sync:     syncRunner,
		notifier: notifier,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start starts the tick loop
func (s *PipelineScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Pipeline scheduler started",
		zap.String("mode", string(s.config.Mode())),
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop stops the tick loop and waits for an in-flight tick to finish
func (s *PipelineScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.setNextTick(nil)
		s.logger.Info("Pipeline scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Pipeline scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the tick loop is active
func (s *PipelineScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *PipelineScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.Tick(ctx)
	} else {
		next := s.now().Add(s.config.Interval)
		s.setNextTick(&next)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduled pass of the enabled workers.
// It returns false when the tick was skipped because another one is running.
// A started tick always runs to completion; cancelling ctx does not abort it.
func (s *PipelineScheduler) Tick(ctx context.Context) bool {
	if !s.ticking.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("Previous tick still running, skipping")
		return false
	}
	defer s.ticking.Store(false)

	ctx = context.WithoutCancel(ctx)
	startedAt := s.now()
	next := startedAt.Add(s.config.Interval)

	s.statusMu.Lock()
	s.lastTickStartedAt = &startedAt
	s.nextTickAt = &next
	s.statusMu.Unlock()

	if s.config.SyncEnabled {
		s.runSync(ctx, appprocurement.SyncRequest{
			Trigger:         procurement.SyncTriggerScheduled,
			NextScheduledAt: &next,
		})
	}
	if s.config.NotifyEnabled {
		s.runNotify(ctx)
	}

	endedAt := s.now()
	s.statusMu.Lock()
	s.lastTickEndedAt = &endedAt
	s.statusMu.Unlock()

	s.logger.Debug("Tick finished",
		zap.Duration("duration", endedAt.Sub(startedAt)),
		zap.Time("next_tick_at", next),
	)
	return true
}

// TriggerSync runs one sync pass on demand and returns its counts.
// It shares the single-flight guard with scheduled ticks.
func (s *PipelineScheduler) TriggerSync(ctx context.Context) (*appprocurement.SyncResult, error) {
	if !s.config.SyncEnabled || s.sync == nil {
		return nil, ErrSyncDisabled
	}
	if !s.ticking.CompareAndSwap(false, true) {
		return nil, ErrTickInProgress
	}
	defer s.ticking.Store(false)

	req := appprocurement.SyncRequest{Trigger: procurement.SyncTriggerManual}
	s.statusMu.RLock()
	if s.nextTickAt != nil {
		next := *s.nextTickAt
		req.NextScheduledAt = &next
	}
	s.statusMu.RUnlock()

	return s.runSync(ctx, req)
}

// Status returns a snapshot of the scheduler state
func (s *PipelineScheduler) Status() Status {
	status := Status{
		Running:        s.IsRunning(),
		TickInProgress: s.ticking.Load(),
		Mode:           s.config.Mode(),
		Interval:       s.config.Interval.String(),
		SkippedTicks:   s.skipped.Load(),
	}

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	status.LastTickStartedAt = s.lastTickStartedAt
	status.LastTickEndedAt = s.lastTickEndedAt
	status.NextTickAt = s.nextTickAt
	status.LastSync = s.lastSync
	status.LastDispatch = s.lastDispatch
	return status
}

func (s *PipelineScheduler) runSync(ctx context.Context, req appprocurement.SyncRequest) (result *appprocurement.SyncResult, err error) {
	err = s.guard("sync", func() error {
		var runErr error
		result, runErr = s.sync.Run(ctx, req)
		return runErr
	})
	if result != nil {
		s.statusMu.Lock()
		s.lastSync = result
		s.statusMu.Unlock()
	}
	if err != nil {
		s.logger.Error("Sync worker failed",
			zap.String("trigger", string(req.Trigger)),
			zap.Error(err),
		)
	}
	return result, err
}

func (s *PipelineScheduler) runNotify(ctx context.Context) {
	var result *appprocurement.DispatchResult
	err := s.guard("notify", func() error {
		var runErr error
		result, runErr = s.notifier.DispatchPending(ctx)
		return runErr
	})
	if result != nil {
		s.statusMu.Lock()
		s.lastDispatch = result
		s.statusMu.Unlock()
	}
	if err != nil {
		s.logger.Error("Notification worker failed", zap.Error(err))
	}
}

// guard runs fn and turns a panic into an error
func (s *PipelineScheduler) guard(worker string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered worker panic",
				zap.String("worker", worker),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %s: %v", ErrWorkerPanicked, worker, r)
		}
	}()
	return fn()
}

func (s *PipelineScheduler) setNextTick(next *time.Time) {
	s.statusMu.Lock()
	s.nextTickAt = next
	s.statusMu.Unlock()
}
