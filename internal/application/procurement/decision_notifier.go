package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// Decision is a provider's answer to a purchase order
type Decision string

const (
	DecisionConfirmed Decision = "confirmed"
	DecisionRejected  Decision = "rejected"
)

// IsValid reports whether d is a known decision
func (d Decision) IsValid() bool {
	return d == DecisionConfirmed || d == DecisionRejected
}

// DecisionNotifier tells the purchasing team that a provider confirmed or
// rejected an order.
type DecisionNotifier struct {
	orders          procurement.PurchaseOrderRepository
	providers       procurement.ProviderRepository
	gateway         integration.MessagingGateway
	portalURL       string
	purchasingPhone string
	logger          *zap.Logger
}

// NewDecisionNotifier creates a new DecisionNotifier
func NewDecisionNotifier(
	orders procurement.PurchaseOrderRepository,
	providers procurement.ProviderRepository,
	gateway integration.MessagingGateway,
	portalURL string,
	purchasingPhone string,
	logger *zap.Logger,
) *DecisionNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionNotifier{
		orders:          orders,
		providers:       providers,
		gateway:         gateway,
		portalURL:       portalURL,
		purchasingPhone: purchasingPhone,
		logger:          logger.Named("decision"),
	}
}

// Notify sends the decision message for an order
func (n *DecisionNotifier) Notify(ctx context.Context, orderID uuid.UUID, decision Decision, reason string) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "decision", "notify",
		telemetry.SpanOrderID.String(orderID.String()),
		telemetry.SpanDecision.String(string(decision)),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if !decision.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	if n.purchasingPhone == "" {
		return ErrPurchasingPhoneMissing
	}

	order, err := n.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	provider, err := n.providers.FindByID(ctx, order.ProviderID)
	if err != nil {
		return err
	}

	msg := integration.OrderDecisionNotification{
		Phone:        n.purchasingPhone,
		ProviderName: provider.LegalName,
		URL:          n.portalURL,
		OrderNumber:  order.OrderNumber(),
		Reason:       reason,
	}
	if decision == DecisionConfirmed {
		err = n.gateway.SendOrderConfirmed(ctx, msg)
	} else {
		err = n.gateway.SendOrderRejected(ctx, msg)
	}
	if err != nil {
		n.logger.Warn("Decision notification not delivered",
			zap.String("order_id", orderID.String()),
			zap.String("decision", string(decision)),
			zap.Error(err),
		)
		return err
	}

	n.logger.Info("Decision notification sent",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", msg.OrderNumber),
		zap.String("decision", string(decision)),
	)
	return nil
}
