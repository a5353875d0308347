package procurement

import (
	"strings"
	"time"

	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle status of a purchase order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusConfirmed OrderStatus = "confirmada"
	OrderStatusRejected  OrderStatus = "rechazada"
)

// DeliveryStatus represents the delivery status of a purchase order
type DeliveryStatus string

const (
	DeliveryStatusNotDelivered DeliveryStatus = "no_entregada"
	DeliveryStatusDelivered    DeliveryStatus = "entregada"
	DeliveryStatusPartial      DeliveryStatus = "parcial"
)

// NotificationState is the outbound new-order notification flag.
type NotificationState int

const (
	// NotificationPending means the provider has not been notified yet
	NotificationPending NotificationState = 0
	// NotificationSent is terminal: the gateway accepted the message
	NotificationSent NotificationState = 1
	// NotificationInFlight marks an order claimed by a worker whose send has not resolved
	NotificationInFlight NotificationState = 2
)

// String returns the string representation of NotificationState
func (s NotificationState) String() string {
	switch s {
	case NotificationPending:
		return "pending"
	case NotificationSent:
		return "sent"
	case NotificationInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// DefaultDocumentType is used when an order carries no document type
const DefaultDocumentType = "FOC"

// documentNumberWidth is the zero-padded width of the consecutive number in order numbers
const documentNumberWidth = 6

// OrderHeader holds the descriptive fields copied from the first ERP line of an order
type OrderHeader struct {
	ExternalID     string
	DocumentType   string
	OrderDate      time.Time
	City           string
	Reference      string
	Description    string
	Notes          string
	BuyerName      string
	GlobalDiscount decimal.Decimal
}

// PurchaseOrder is an order header identified by (ProviderID, DocumentNumber).
// Subtotal, Tax and Total are always derived from the order's lines.
type PurchaseOrder struct {
	shared.BaseEntity
	ProviderID          uuid.UUID
	ExternalID          *string
	DocumentType        string
	DocumentNumber      string
	OrderDate           time.Time
	City                string
	Reference           string
	Description         string
	Notes               string
	BuyerName           string
	Subtotal            decimal.Decimal
	Tax                 decimal.Decimal
	Total               decimal.Decimal
	GlobalDiscount      decimal.Decimal
	Status              OrderStatus
	DeliveryStatus      DeliveryStatus
	EstimatedDeliveryAt *time.Time
	TrackingNumber      *string
	InvoiceNumber       *string
	Notification        NotificationState
	NotifiedAt          *time.Time
}

// NewPurchaseOrder creates a pending order header with zero aggregates
func NewPurchaseOrder(providerID uuid.UUID, documentNumber string, header OrderHeader) (*PurchaseOrder, error) {
	if providerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Provider ID cannot be empty")
	}
	documentNumber = strings.TrimSpace(documentNumber)
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}

	order := &PurchaseOrder{
		BaseEntity:     shared.NewBaseEntity(),
		ProviderID:     providerID,
		DocumentType:   strings.TrimSpace(header.DocumentType),
		DocumentNumber: documentNumber,
		OrderDate:      header.OrderDate,
		City:           defaultString(header.City, "N/A"),
		Reference:      defaultString(header.Reference, "N/A"),
		Description:    defaultString(header.Description, "N/A"),
		Notes:          header.Notes,
		BuyerName:      header.BuyerName,
		Subtotal:       decimal.Zero,
		Tax:            decimal.Zero,
		Total:          decimal.Zero,
		GlobalDiscount: header.GlobalDiscount,
		Status:         OrderStatusPending,
		DeliveryStatus: DeliveryStatusNotDelivered,
		Notification:   NotificationPending,
	}
	if id := strings.TrimSpace(header.ExternalID); id != "" {
		order.ExternalID = &id
	}
	return order, nil
}

// RecomputeTotals derives the order aggregates from the complete set of its lines:
// total and tax are the sums over the lines, subtotal is their difference.
func (o *PurchaseOrder) RecomputeTotals(lines []OrderLine) {
	total := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total)
		tax = tax.Add(line.Tax)
	}
	o.Total = total.Round(2)
	o.Tax = tax.Round(2)
	o.Subtotal = total.Sub(tax).Round(2)
	o.Touch(time.Now())
}

// OrderNumber returns the human-facing order number, e.g. FOC-000123
func (o *PurchaseOrder) OrderNumber() string {
	return FormatOrderNumber(o.DocumentType, o.DocumentNumber)
}

// IsNotificationPending returns true if the order still needs its new-order notification
func (o *PurchaseOrder) IsNotificationPending() bool {
	return o.Notification == NotificationPending
}

// FormatOrderNumber formats a document type and consecutive number as TYPE-000123.
// An empty type defaults to FOC; numbers longer than six digits are kept as-is.
func FormatOrderNumber(documentType, documentNumber string) string {
	documentType = strings.TrimSpace(documentType)
	if documentType == "" {
		documentType = DefaultDocumentType
	}
	documentNumber = strings.TrimSpace(documentNumber)
	if pad := documentNumberWidth - len(documentNumber); pad > 0 {
		documentNumber = strings.Repeat("0", pad) + documentNumber
	}
	return documentType + "-" + documentNumber
}

func defaultString(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
