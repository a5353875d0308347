package procurement

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/supplier-portal/internal/domain/procurement"
)

// SyncRequest describes one sync pass
type SyncRequest struct {
	Trigger         procurement.SyncTrigger
	NextScheduledAt *time.Time
}

// SyncResult is the outcome of one sync pass, as returned to the manual trigger
type SyncResult struct {
	RunID     uuid.UUID               `json:"run_id"`
	Success   bool                    `json:"success"`
	Status    procurement.SyncStatus  `json:"status"`
	Trigger   procurement.SyncTrigger `json:"trigger"`
	StartedAt time.Time               `json:"started_at"`
	EndedAt   time.Time               `json:"ended_at"`
	Watermark time.Time               `json:"watermark"`
	procurement.SyncCounts
	Error string `json:"error,omitempty"`
}

// DispatchResult is the outcome of one notification pass
type DispatchResult struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// SyncRunResponse is the read model of a sync run
type SyncRunResponse struct {
	ID              uuid.UUID               `json:"id"`
	StartedAt       time.Time               `json:"started_at"`
	EndedAt         *time.Time              `json:"ended_at,omitempty"`
	Status          procurement.SyncStatus  `json:"status"`
	Trigger         procurement.SyncTrigger `json:"trigger"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	NextScheduledAt *time.Time              `json:"next_scheduled_at,omitempty"`
	procurement.SyncCounts
}

// ToSyncRunResponse converts a domain run to its read model
func ToSyncRunResponse(run procurement.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:              run.ID,
		StartedAt:       run.StartedAt,
		EndedAt:         run.EndedAt,
		Status:          run.Status,
		Trigger:         run.Trigger,
		ErrorMessage:    run.ErrorMessage,
		NextScheduledAt: run.NextScheduledAt,
		SyncCounts:      run.Counts,
	}
}
