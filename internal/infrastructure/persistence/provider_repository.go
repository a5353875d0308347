package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProviderRepository implements ProviderRepository using GORM
type GormProviderRepository struct {
	db *gorm.DB
}

// NewGormProviderRepository creates a new GormProviderRepository
func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

// FindByID finds a provider by its ID
func (r *GormProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.Provider, error) {
	var model models.ProviderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNIT finds a provider by its tax ID
func (r *GormProviderRepository) FindByNIT(ctx context.Context, nit string) (*procurement.Provider, error) {
	nit = strings.TrimSpace(nit)
	if nit == "" {
		return nil, shared.NewDomainError("INVALID_NIT", "NIT cannot be empty")
	}
	var model models.ProviderModel
	if err := r.db.WithContext(ctx).
		Where("nit = ?", nit).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new provider
func (r *GormProviderRepository) Create(ctx context.Context, provider *procurement.Provider) error {
	model := models.ProviderModelFromDomain(provider)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

var _ procurement.ProviderRepository = (*GormProviderRepository)(nil)
