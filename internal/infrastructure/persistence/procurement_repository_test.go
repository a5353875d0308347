package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProcurementTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ProcurementModels()...))
	return db
}

func createTestProvider(t *testing.T, repo *GormProviderRepository, nit string) *procurement.Provider {
	t.Helper()
	provider, err := procurement.NewPlaceholderProvider(nit, "Ferreteria Central", "$2a$04$hash")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), provider))
	return provider
}

func createTestOrder(t *testing.T, repo *GormPurchaseOrderRepository, providerID uuid.UUID, number string) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder(providerID, number, procurement.OrderHeader{
		DocumentType: "FOC",
		OrderDate:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

// ---------------------------------------------------------------------------
// Providers
// ---------------------------------------------------------------------------

func TestGormProviderRepository(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormProviderRepository(db)
	ctx := context.Background()

	created := createTestProvider(t, repo, "900123456")

	t.Run("finds provider by NIT", func(t *testing.T) {
		found, err := repo.FindByNIT(ctx, "900123456")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "prov_900123456@sistema.com", found.Email)
		assert.Equal(t, procurement.PlaceholderMobile, found.Mobile)
		assert.Equal(t, procurement.ProviderStatusActive, found.Status)
	})

	t.Run("finds provider by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "900123456", found.NIT)
	})

	t.Run("returns ErrNotFound for unknown NIT", func(t *testing.T) {
		_, err := repo.FindByNIT(ctx, "111")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects empty NIT lookup", func(t *testing.T) {
		_, err := repo.FindByNIT(ctx, "  ")
		assert.Error(t, err)
	})

	t.Run("NIT is unique", func(t *testing.T) {
		dup, err := procurement.NewPlaceholderProvider("900123456", "Other", "$2a$04$hash")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})
}

// ---------------------------------------------------------------------------
// Purchase orders
// ---------------------------------------------------------------------------

func TestGormPurchaseOrderRepository_FindAndCreate(t *testing.T) {
	db := setupProcurementTestDB(t)
	providers := NewGormProviderRepository(db)
	repo := NewGormPurchaseOrderRepository(db)
	ctx := context.Background()

	provider := createTestProvider(t, providers, "800111222")
	order := createTestOrder(t, repo, provider.ID, "1234")

	t.Run("finds order by provider and document", func(t *testing.T) {
		found, err := repo.FindByProviderAndDocument(ctx, provider.ID, "1234")
		require.NoError(t, err)
		assert.Equal(t, order.ID, found.ID)
		assert.Equal(t, "FOC-001234", found.OrderNumber())
		assert.Equal(t, procurement.OrderStatusPending, found.Status)
		assert.Equal(t, procurement.DeliveryStatusNotDelivered, found.DeliveryStatus)
		assert.Equal(t, procurement.NotificationPending, found.Notification)
	})

	t.Run("same document for another provider is a different order", func(t *testing.T) {
		other := createTestProvider(t, providers, "800333444")
		_, err := repo.FindByProviderAndDocument(ctx, other.ID, "1234")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("provider and document are unique", func(t *testing.T) {
		dup, err := procurement.NewPurchaseOrder(provider.ID, "1234", procurement.OrderHeader{})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("updates totals", func(t *testing.T) {
		err := repo.UpdateTotals(ctx, order.ID,
			decimal.NewFromInt(25000), decimal.NewFromInt(4750), decimal.NewFromInt(29750))
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, found.Subtotal.Equal(decimal.NewFromInt(25000)), found.Subtotal.String())
		assert.True(t, found.Tax.Equal(decimal.NewFromInt(4750)), found.Tax.String())
		assert.True(t, found.Total.Equal(decimal.NewFromInt(29750)), found.Total.String())
	})

	t.Run("update totals of unknown order returns ErrNotFound", func(t *testing.T) {
		err := repo.UpdateTotals(ctx, uuid.New(), decimal.Zero, decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPurchaseOrderRepository_NotificationClaim(t *testing.T) {
	db := setupProcurementTestDB(t)
	providers := NewGormProviderRepository(db)
	repo := NewGormPurchaseOrderRepository(db)
	ctx := context.Background()

	provider := createTestProvider(t, providers, "900555666")
	order := createTestOrder(t, repo, provider.ID, "77")
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("pending orders are listed with their provider", func(t *testing.T) {
		pending, err := repo.FindPendingNotification(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, order.ID, pending[0].Order.ID)
		assert.Equal(t, provider.NIT, pending[0].Provider.NIT)
	})

	t.Run("only the first claim wins", func(t *testing.T) {
		claimed, err := repo.ClaimNotification(ctx, order.ID, now)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = repo.ClaimNotification(ctx, order.ID, now)
		require.NoError(t, err)
		assert.False(t, claimed)

		pending, err := repo.FindPendingNotification(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.NotificationInFlight, found.Notification)
		require.NotNil(t, found.NotifiedAt)
	})

	t.Run("release reverts to pending and clears timestamp", func(t *testing.T) {
		require.NoError(t, repo.ReleaseNotification(ctx, order.ID))

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.NotificationPending, found.Notification)
		assert.Nil(t, found.NotifiedAt)
	})

	t.Run("mark notified requires a claim", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkNotified(ctx, order.ID), shared.ErrInvalidState)
	})

	t.Run("claimed order becomes sent", func(t *testing.T) {
		claimed, err := repo.ClaimNotification(ctx, order.ID, now)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.MarkNotified(ctx, order.ID))

		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.NotificationSent, found.Notification)

		claimed, err = repo.ClaimNotification(ctx, order.ID, now)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

// ---------------------------------------------------------------------------
// Order lines
// ---------------------------------------------------------------------------

func TestGormOrderLineRepository(t *testing.T) {
	db := setupProcurementTestDB(t)
	provider := createTestProvider(t, NewGormProviderRepository(db), "901000000")
	order := createTestOrder(t, NewGormPurchaseOrderRepository(db), provider.ID, "500")
	repo := NewGormOrderLineRepository(db)
	ctx := context.Background()

	amounts := procurement.LineAmounts{
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.NewFromInt(10000),
		Subtotal:  decimal.NewFromInt(20000),
		Tax:       decimal.NewFromInt(3800),
		Total:     decimal.NewFromInt(23800),
	}
	line, err := procurement.NewOrderLine(order.ID, "REF-1", "Tornillo", amounts)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, line))

	t.Run("reports existing reference", func(t *testing.T) {
		exists, err := repo.ExistsByOrderAndReference(ctx, order.ID, "REF-1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByOrderAndReference(ctx, order.ID, "REF-2")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("order and reference are unique", func(t *testing.T) {
		dup, err := procurement.NewOrderLine(order.ID, "REF-1", "Tornillo", amounts)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("lists lines of an order", func(t *testing.T) {
		lines, err := repo.FindByOrder(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "REF-1", lines[0].Reference)
		assert.True(t, lines[0].Total.Equal(decimal.NewFromInt(23800)))
	})
}

// ---------------------------------------------------------------------------
// Sync runs
// ---------------------------------------------------------------------------

func TestGormSyncRunRepository(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormSyncRunRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("no successful run returns ErrNotFound", func(t *testing.T) {
		_, err := repo.FindLastSuccessful(ctx)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	first := procurement.NewSyncRun(procurement.SyncTriggerScheduled, base)
	first.Succeed(base.Add(time.Minute), procurement.SyncCounts{RecordsProcessed: 3, OrdersCreated: 1})
	require.NoError(t, repo.Create(ctx, first))

	second := procurement.NewSyncRun(procurement.SyncTriggerManual, base.Add(10*time.Minute))
	second.Succeed(base.Add(11*time.Minute), procurement.SyncCounts{})
	require.NoError(t, repo.Create(ctx, second))

	failed := procurement.NewSyncRun(procurement.SyncTriggerScheduled, base.Add(20*time.Minute))
	failed.Fail(base.Add(21*time.Minute), assert.AnError)
	require.NoError(t, repo.Create(ctx, failed))

	t.Run("last successful ignores failed runs", func(t *testing.T) {
		last, err := repo.FindLastSuccessful(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, last.ID)
		assert.Equal(t, procurement.SyncTriggerManual, last.Trigger)
		require.NotNil(t, last.EndedAt)
		assert.True(t, last.EndedAt.Equal(base.Add(11*time.Minute)))
	})

	t.Run("recent runs are newest first", func(t *testing.T) {
		runs, err := repo.FindRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, failed.ID, runs[0].ID)
		assert.Equal(t, procurement.SyncStatusFailed, runs[0].Status)
		assert.NotEmpty(t, runs[0].ErrorMessage)
		assert.Equal(t, second.ID, runs[1].ID)
	})

	t.Run("counts round trip", func(t *testing.T) {
		runs, err := repo.FindRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, 3, runs[2].Counts.RecordsProcessed)
		assert.Equal(t, 1, runs[2].Counts.OrdersCreated)
	})
}
