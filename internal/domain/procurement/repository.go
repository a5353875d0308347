package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderRepository defines the interface for provider persistence
type ProviderRepository interface {
	// FindByID finds a provider by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// FindByNIT finds a provider by its tax ID
	FindByNIT(ctx context.Context, nit string) (*Provider, error)

	// Create inserts a new provider
	Create(ctx context.Context, provider *Provider) error
}

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds an order by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByProviderAndDocument finds an order by its natural key
	FindByProviderAndDocument(ctx context.Context, providerID uuid.UUID, documentNumber string) (*PurchaseOrder, error)

	// Create inserts a new order header
	Create(ctx context.Context, order *PurchaseOrder) error

	// UpdateTotals persists recomputed aggregates; it is the only writer of these columns
	UpdateTotals(ctx context.Context, id uuid.UUID, subtotal, tax, total decimal.Decimal) error

	// FindPendingNotification returns orders whose notification flag is pending, joined to their provider
	FindPendingNotification(ctx context.Context) ([]PendingNotification, error)

	// ClaimNotification moves the flag from pending to in-flight.
	// It returns false when another worker already claimed the order.
	ClaimNotification(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// MarkNotified moves a claimed order to the terminal sent state
	MarkNotified(ctx context.Context, id uuid.UUID) error

	// ReleaseNotification reverts a claimed order to pending and clears its notification timestamp
	ReleaseNotification(ctx context.Context, id uuid.UUID) error
}

// OrderLineRepository defines the interface for order line persistence
type OrderLineRepository interface {
	// ExistsByOrderAndReference checks the line idempotency key
	ExistsByOrderAndReference(ctx context.Context, orderID uuid.UUID, reference string) (bool, error)

	// Create inserts a new line
	Create(ctx context.Context, line *OrderLine) error

	// FindByOrder returns all current lines of an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error)
}

// SyncRunRepository defines the interface for sync run persistence
type SyncRunRepository interface {
	// Create appends a run record
	Create(ctx context.Context, run *SyncRun) error

	// FindLastSuccessful returns the successful run with the latest end time
	FindLastSuccessful(ctx context.Context) (*SyncRun, error)

	// FindRecent returns the most recent runs, newest first
	FindRecent(ctx context.Context, limit int) ([]SyncRun, error)
}

// PendingNotification pairs an order awaiting notification with its provider
type PendingNotification struct {
	Order    PurchaseOrder
	Provider Provider
}
