package procurement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence"
	"github.com/erp/supplier-portal/internal/infrastructure/persistence/models"
)

// ============================================================================
// Mocks
// ============================================================================

// MockERPSource is a mock implementation of integration.ERPSource
type MockERPSource struct {
	mock.Mock
}

func (m *MockERPSource) FetchLatestBatch(ctx context.Context) ([]integration.RawLine, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.RawLine), args.Error(1)
}

// MockMessagingGateway is a mock implementation of integration.MessagingGateway
type MockMessagingGateway struct {
	mock.Mock
}

func (m *MockMessagingGateway) SendNewOrder(ctx context.Context, n integration.NewOrderNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockMessagingGateway) SendOrderConfirmed(ctx context.Context, n integration.OrderDecisionNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockMessagingGateway) SendOrderRejected(ctx context.Context, n integration.OrderDecisionNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockBatchArchive is a mock implementation of BatchArchive
type MockBatchArchive struct {
	mock.Mock
}

func (m *MockBatchArchive) Archive(ctx context.Context, runID uuid.UUID, fetchedAt time.Time, lines []integration.RawLine) error {
	args := m.Called(ctx, runID, fetchedAt, lines)
	return args.Error(0)
}

// MockSyncRunRepository is a mock implementation of procurement.SyncRunRepository
type MockSyncRunRepository struct {
	mock.Mock
}

func (m *MockSyncRunRepository) Create(ctx context.Context, run *procurement.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncRunRepository) FindLastSuccessful(ctx context.Context) (*procurement.SyncRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.SyncRun), args.Error(1)
}

func (m *MockSyncRunRepository) FindRecent(ctx context.Context, limit int) ([]procurement.SyncRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.SyncRun), args.Error(1)
}

// fakePassLock is an in-process PassLock
type fakePassLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakePassLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, ErrSyncLocked
	}
	l.held = true
	l.acquired++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, nil
}

var (
	_ PassLock                      = (*fakePassLock)(nil)
	_ integration.ERPSource         = (*MockERPSource)(nil)
	_ integration.MessagingGateway  = (*MockMessagingGateway)(nil)
	_ BatchArchive                  = (*MockBatchArchive)(nil)
	_ procurement.SyncRunRepository = (*MockSyncRunRepository)(nil)
)

// ============================================================================
// Store fixture
// ============================================================================

// testStore bundles sqlite-backed repositories sharing one in-memory database
type testStore struct {
	db        *gorm.DB
	providers *persistence.GormProviderRepository
	orders    *persistence.GormPurchaseOrderRepository
	lines     *persistence.GormOrderLineRepository
	runs      *persistence.GormSyncRunRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ProcurementModels()...))

	return &testStore{
		db:        db,
		providers: persistence.NewGormProviderRepository(db),
		orders:    persistence.NewGormPurchaseOrderRepository(db),
		lines:     persistence.NewGormOrderLineRepository(db),
		runs:      persistence.NewGormSyncRunRepository(db),
	}
}

func (s *testStore) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&models.PurchaseOrderModel{}).Count(&n).Error)
	return n
}

func (s *testStore) countLines(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&models.OrderLineModel{}).Count(&n).Error)
	return n
}

func (s *testStore) countProviders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&models.ProviderModel{}).Count(&n).Error)
	return n
}

// testClock is a settable time source
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
