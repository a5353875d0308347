package persistence

import (
	"context"
	"errors"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncRunRepository implements SyncRunRepository using GORM.
// Runs are append-only: there is no update or delete.
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Create appends a run record
func (r *GormSyncRunRepository) Create(ctx context.Context, run *procurement.SyncRun) error {
	return r.db.WithContext(ctx).Create(models.SyncRunModelFromDomain(run)).Error
}

// FindLastSuccessful returns the successful run with the latest end time
func (r *GormSyncRunRepository) FindLastSuccessful(ctx context.Context) (*procurement.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND ended_at IS NOT NULL", procurement.SyncStatusSuccess).
		Order("ended_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("no successful sync run yet")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns the most recent runs, newest first
func (r *GormSyncRunRepository) FindRecent(ctx context.Context, limit int) ([]procurement.SyncRun, error) {
	var runModels []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}
	runs := make([]procurement.SyncRun, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs, nil
}

var _ procurement.SyncRunRepository = (*GormSyncRunRepository)(nil)
