package procurement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRun_Lifecycle(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("succeed records counts and end time", func(t *testing.T) {
		run := NewSyncRun(SyncTriggerManual, start)
		assert.Equal(t, SyncStatusInProgress, run.Status)
		assert.Equal(t, SyncTriggerManual, run.Trigger)
		assert.Zero(t, run.Duration())

		run.Succeed(start.Add(3*time.Second), SyncCounts{RecordsProcessed: 2, OrdersCreated: 1})

		assert.True(t, run.IsSuccessful())
		require.NotNil(t, run.EndedAt)
		assert.Equal(t, 3*time.Second, run.Duration())
		assert.Equal(t, 2, run.Counts.RecordsProcessed)
		assert.Equal(t, 1, run.Counts.OrdersCreated)
	})

	t.Run("fail keeps error and zero counts", func(t *testing.T) {
		run := NewSyncRun("", start)
		assert.Equal(t, SyncTriggerScheduled, run.Trigger)

		run.Fail(start.Add(time.Second), errors.New("erp unavailable"))

		assert.False(t, run.IsSuccessful())
		assert.Equal(t, SyncStatusFailed, run.Status)
		assert.Equal(t, "erp unavailable", run.ErrorMessage)
		assert.Equal(t, SyncCounts{}, run.Counts)
	})

	t.Run("schedule next", func(t *testing.T) {
		run := NewSyncRun(SyncTriggerScheduled, start)
		run.ScheduleNext(start.Add(10 * time.Minute))
		require.NotNil(t, run.NextScheduledAt)
		assert.Equal(t, start.Add(10*time.Minute), *run.NextScheduledAt)
	})
}
