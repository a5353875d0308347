package integration

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// MessagingGateway Errors
// ---------------------------------------------------------------------------

var (
	ErrGatewayNotConfigured  = errors.New("integration: messaging gateway not configured")
	ErrGatewayUnavailable    = errors.New("integration: messaging gateway temporarily unavailable")
	ErrGatewayRequestFailed  = errors.New("integration: messaging gateway request failed")
	ErrGatewayInvalidPayload = errors.New("integration: invalid notification payload")
)

// NotificationType identifies a gateway message template
type NotificationType string

const (
	NotificationTypeNewOrder       NotificationType = "proveedores_orden_compra"
	NotificationTypeOrderConfirmed NotificationType = "proveedores_orden_compra_aprobada"
	NotificationTypeOrderRejected  NotificationType = "proveedores_orden_compra_rechazada"
)

// NewOrderNotification tells a provider that a new purchase order is available
type NewOrderNotification struct {
	Phone        string
	ProviderName string
	URL          string
	OrderNumber  string
}

// OrderDecisionNotification tells purchasing that a provider confirmed or rejected an order
type OrderDecisionNotification struct {
	Phone        string
	ProviderName string
	URL          string
	OrderNumber  string
	Reason       string
}

// MessagingGateway sends outbound WhatsApp notifications.
// A nil error means the gateway accepted the message (any 2xx response).
type MessagingGateway interface {
	SendNewOrder(ctx context.Context, n NewOrderNotification) error
	SendOrderConfirmed(ctx context.Context, n OrderDecisionNotification) error
	SendOrderRejected(ctx context.Context, n OrderDecisionNotification) error
}
