package persistence

import (
	"context"
	"errors"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderLineRepository implements OrderLineRepository using GORM
type GormOrderLineRepository struct {
	db *gorm.DB
}

// NewGormOrderLineRepository creates a new GormOrderLineRepository
func NewGormOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db}
}

// ExistsByOrderAndReference checks if a line with the given reference exists on the order
func (r *GormOrderLineRepository) ExistsByOrderAndReference(ctx context.Context, orderID uuid.UUID, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderLineModel{}).
		Where("purchase_order_id = ? AND reference = ?", orderID, reference).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new line
func (r *GormOrderLineRepository) Create(ctx context.Context, line *procurement.OrderLine) error {
	model := models.OrderLineModelFromDomain(line)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByOrder returns all lines of an order in insertion order
func (r *GormOrderLineRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]procurement.OrderLine, error) {
	var lineModels []models.OrderLineModel
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("created_at ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	lines := make([]procurement.OrderLine, len(lineModels))
	for i := range lineModels {
		lines[i] = *lineModels[i].ToDomain()
	}
	return lines, nil
}

var _ procurement.OrderLineRepository = (*GormOrderLineRepository)(nil)
