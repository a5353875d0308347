package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoWorkersEnabled is returned when both the sync and notification workers are disabled
	ErrNoWorkersEnabled = errors.New("scheduler has no enabled workers")

	// ErrTickInProgress is returned when a manual trigger finds a tick already running
	ErrTickInProgress = errors.New("a pipeline tick is already in progress")

	// ErrSyncDisabled is returned when a manual sync is requested but the sync worker is disabled
	ErrSyncDisabled = errors.New("sync worker is disabled")

	// ErrWorkerPanicked wraps a recovered worker panic
	ErrWorkerPanicked = errors.New("pipeline worker panicked")
)
