package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/supplier-portal/internal/domain/integration"
)

// BatchArchive stores the raw ERP batch fetched by a sync run
type BatchArchive interface {
	Archive(ctx context.Context, runID uuid.UUID, fetchedAt time.Time, lines []integration.RawLine) error
}

// PassLock keeps sync passes of different processes from overlapping.
// Acquire returns ErrSyncLocked when another process holds the lock.
type PassLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}
