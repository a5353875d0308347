package procurement

import (
	"strings"

	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is a single product line of a purchase order, identified by
// (PurchaseOrderID, Reference). Lines are never updated once created.
type OrderLine struct {
	shared.BaseEntity
	PurchaseOrderID uuid.UUID
	Reference       string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
}

// LineAmounts holds the normalized monetary fields of a line
type LineAmounts struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// NewOrderLine creates a line for the given order
func NewOrderLine(orderID uuid.UUID, reference, description string, amounts LineAmounts) (*OrderLine, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Purchase order ID cannot be empty")
	}
	return &OrderLine{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: orderID,
		Reference:       strings.TrimSpace(reference),
		Description:     strings.TrimSpace(description),
		Quantity:        amounts.Quantity,
		UnitPrice:       amounts.UnitPrice,
		Tax:             amounts.Tax,
		Total:           amounts.Total,
	}, nil
}
