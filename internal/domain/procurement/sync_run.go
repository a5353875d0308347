package procurement

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus represents the outcome of a synchronization run
type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "en_progreso"
	SyncStatusSuccess    SyncStatus = "exitosa"
	SyncStatusFailed     SyncStatus = "fallida"
)

// SyncTrigger identifies what started a synchronization run
type SyncTrigger string

const (
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerCLI       SyncTrigger = "cli"
)

// SyncCounts holds the counters accumulated during one synchronization run
type SyncCounts struct {
	RecordsProcessed int `json:"records_processed"`
	OrdersCreated    int `json:"orders_created"`
	OrdersUpdated    int `json:"orders_updated"`
	GroupsSkipped    int `json:"groups_skipped"`
	GroupsFailed     int `json:"groups_failed"`
}

// SyncRun is the append-only audit record of one Sync Worker execution.
// The EndedAt of the most recent successful run is the sync watermark.
type SyncRun struct {
	ID              uuid.UUID
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          SyncStatus
	Trigger         SyncTrigger
	Counts          SyncCounts
	ErrorMessage    string
	NextScheduledAt *time.Time
}

// NewSyncRun starts a new in-progress run
func NewSyncRun(trigger SyncTrigger, startedAt time.Time) *SyncRun {
	if trigger == "" {
		trigger = SyncTriggerScheduled
	}
	return &SyncRun{
		ID:        uuid.New(),
		StartedAt: startedAt,
		Status:    SyncStatusInProgress,
		Trigger:   trigger,
	}
}

// Succeed closes the run as successful with the given counts
func (r *SyncRun) Succeed(endedAt time.Time, counts SyncCounts) {
	r.EndedAt = &endedAt
	r.Status = SyncStatusSuccess
	r.Counts = counts
	r.ErrorMessage = ""
}

// Fail closes the run as failed. Counts are reset since nothing was reconciled.
func (r *SyncRun) Fail(endedAt time.Time, err error) {
	r.EndedAt = &endedAt
	r.Status = SyncStatusFailed
	r.Counts = SyncCounts{}
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// ScheduleNext records when the scheduler expects to run the next pass
func (r *SyncRun) ScheduleNext(at time.Time) {
	r.NextScheduledAt = &at
}

// IsSuccessful returns true if the run completed successfully
func (r *SyncRun) IsSuccessful() bool {
	return r.Status == SyncStatusSuccess
}

// Duration returns how long the run took, or zero while it is in progress
func (r *SyncRun) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
