package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProviderAndDocument finds an order by (provider, document number)
func (r *GormPurchaseOrderRepository) FindByProviderAndDocument(ctx context.Context, providerID uuid.UUID, documentNumber string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND document_number = ?", providerID, documentNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new order header
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateTotals persists recomputed aggregates
func (r *GormPurchaseOrderRepository) UpdateTotals(ctx context.Context, id uuid.UUID, subtotal, tax, total decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"subtotal":   subtotal,
			"tax":        tax,
			"total":      total,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindPendingNotification returns orders still waiting for their provider
// notification, oldest first, each paired with its provider.
func (r *GormPurchaseOrderRepository) FindPendingNotification(ctx context.Context) ([]procurement.PendingNotification, error) {
	var orderModels []models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Where("notification_state = ?", procurement.NotificationPending).
		Order("created_at ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	if len(orderModels) == 0 {
		return []procurement.PendingNotification{}, nil
	}

	providerIDs := make([]uuid.UUID, 0, len(orderModels))
	seen := make(map[uuid.UUID]struct{}, len(orderModels))
	for _, m := range orderModels {
		if _, ok := seen[m.ProviderID]; ok {
			continue
		}
		seen[m.ProviderID] = struct{}{}
		providerIDs = append(providerIDs, m.ProviderID)
	}

	var providerModels []models.ProviderModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", providerIDs).
		Find(&providerModels).Error; err != nil {
		return nil, err
	}
	providers := make(map[uuid.UUID]*procurement.Provider, len(providerModels))
	for i := range providerModels {
		providers[providerModels[i].ID] = providerModels[i].ToDomain()
	}

	pending := make([]procurement.PendingNotification, 0, len(orderModels))
	for i := range orderModels {
		provider, ok := providers[orderModels[i].ProviderID]
		if !ok {
			continue
		}
		pending = append(pending, procurement.PendingNotification{
			Order:    *orderModels[i].ToDomain(),
			Provider: *provider,
		})
	}
	return pending, nil
}

// ClaimNotification atomically moves an order from pending to in flight.
// Only one concurrent caller can win the claim for a given order.
func (r *GormPurchaseOrderRepository) ClaimNotification(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND notification_state = ?", id, procurement.NotificationPending).
		Updates(map[string]any{
			"notification_state": procurement.NotificationInFlight,
			"notified_at":        at,
			"updated_at":         at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkNotified moves a claimed order to sent
func (r *GormPurchaseOrderRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	return r.transitionClaimed(ctx, id, map[string]any{
		"notification_state": procurement.NotificationSent,
		"updated_at":         time.Now(),
	})
}

// ReleaseNotification reverts a claimed order to pending so it is retried
func (r *GormPurchaseOrderRepository) ReleaseNotification(ctx context.Context, id uuid.UUID) error {
	return r.transitionClaimed(ctx, id, map[string]any{
		"notification_state": procurement.NotificationPending,
		"notified_at":        nil,
		"updated_at":         time.Now(),
	})
}

func (r *GormPurchaseOrderRepository) transitionClaimed(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND notification_state = ?", id, procurement.NotificationInFlight).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrInvalidState.WithMessage("purchase order is not being notified")
	}
	return nil
}

var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
