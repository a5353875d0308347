package procurement

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// NotificationService tells providers about newly synced purchase orders.
//
// Every pending order is claimed (pending -> in flight) before the gateway is
// called, so overlapping passes never send the same order twice. A gateway
// failure releases the claim and the order is retried on the next pass.
type NotificationService struct {
	orders    procurement.PurchaseOrderRepository
	gateway   integration.MessagingGateway
	portalURL string
	now       func() time.Time
	metrics   *telemetry.PipelineMetrics
	logger    *zap.Logger
}

// NotificationServiceOption is a functional option for configuring NotificationService
type NotificationServiceOption func(*NotificationService)

// WithNotificationClock overrides the time source used for claim timestamps
func WithNotificationClock(now func() time.Time) NotificationServiceOption {
	return func(s *NotificationService) {
		s.now = now
	}
}

// WithNotificationMetrics records every pass on the pipeline instruments
func WithNotificationMetrics(metrics *telemetry.PipelineMetrics) NotificationServiceOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	orders procurement.PurchaseOrderRepository,
	gateway integration.MessagingGateway,
	portalURL string,
	logger *zap.Logger,
	opts ...NotificationServiceOption,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		orders:    orders,
		gateway:   gateway,
		portalURL: portalURL,
		now:       time.Now,
		logger:    logger.Named("notify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DispatchPending sends one notification per pending order.
// Per-order failures are counted and logged; only a failure to list pending
// orders is returned as an error.
func (s *NotificationService) DispatchPending(ctx context.Context) (*DispatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "notification", "dispatch_pending")
	defer span.End()

	pending, err := s.orders.FindPendingNotification(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}

	result := &DispatchResult{Pending: len(pending)}
	if len(pending) == 0 {
		s.metrics.RecordDispatch(ctx, 0, 0, 0, 0)
		return result, nil
	}

	s.logger.Info("Dispatching order notifications", zap.Int("pending", len(pending)))

	for _, item := range pending {
		if ctx.Err() != nil {
			break
		}
		switch s.dispatchOne(ctx, item) {
		case dispatchSent:
			result.Sent++
		case dispatchFailed:
			result.Failed++
		default:
			result.Skipped++
		}
	}

	s.metrics.RecordDispatch(ctx, result.Pending, result.Sent, result.Failed, result.Skipped)
	span.SetAttributes(
		attribute.Int("notification.pending", result.Pending),
		attribute.Int("notification.sent", result.Sent),
		attribute.Int("notification.failed", result.Failed),
	)
	s.logger.Info("Notification pass finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

type dispatchOutcome int

const (
	dispatchSkipped dispatchOutcome = iota
	dispatchSent
	dispatchFailed
)

func (s *NotificationService) dispatchOne(ctx context.Context, item procurement.PendingNotification) dispatchOutcome {
	order := item.Order
	ctx, span := telemetry.StartServiceSpan(ctx, "notification", "dispatch_one",
		telemetry.SpanOrderID.String(order.ID.String()),
		telemetry.SpanOrderNumber.String(order.OrderNumber()),
		telemetry.SpanProviderNIT.String(item.Provider.NIT),
	)
	defer span.End()
	logger := s.logger.With(
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber()),
	)

	claimed, err := s.orders.ClaimNotification(ctx, order.ID, s.now())
	if err != nil {
		logger.Error("Failed to claim order notification", zap.Error(err))
		return dispatchFailed
	}
	if !claimed {
		logger.Debug("Order notification already claimed")
		return dispatchSkipped
	}

	// the claim must be settled even when the pass is cancelled mid-send
	settleCtx := context.WithoutCancel(ctx)

	err = s.gateway.SendNewOrder(ctx, integration.NewOrderNotification{
		Phone:        item.Provider.Mobile,
		ProviderName: item.Provider.LegalName,
		URL:          s.portalURL,
		OrderNumber:  order.OrderNumber(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Warn("Order notification not delivered, will retry",
			zap.String("provider_nit", item.Provider.NIT),
			zap.Error(err),
		)
		if relErr := s.orders.ReleaseNotification(settleCtx, order.ID); relErr != nil {
			logger.Error("Failed to release order notification claim", zap.Error(relErr))
		}
		return dispatchFailed
	}

	if err := s.orders.MarkNotified(settleCtx, order.ID); err != nil {
		logger.Error("Failed to mark order as notified", zap.Error(err))
		return dispatchFailed
	}
	logger.Info("Order notification sent", zap.String("provider_nit", item.Provider.NIT))
	return dispatchSent
}
