package procurement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
)

const testPurchasingPhone = "3109876543"

func TestDecisionNotifier_Notify(t *testing.T) {
	store := newTestStore(t)
	_, order := seedPendingOrder(t, store, "900123456", "123")
	ctx := context.Background()

	expected := integration.OrderDecisionNotification{
		Phone:        testPurchasingPhone,
		ProviderName: "Ferreteria Central SAS",
		URL:          testPortalURL,
		OrderNumber:  "FOC-000123",
		Reason:       "sin stock",
	}

	t.Run("confirmed order goes to purchasing", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		gateway.On("SendOrderConfirmed", mock.Anything, expected).Return(nil).Once()

		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, testPurchasingPhone, nil)
		err := notifier.Notify(ctx, order.ID, DecisionConfirmed, "sin stock")

		require.NoError(t, err)
		gateway.AssertExpectations(t)
		gateway.AssertNotCalled(t, "SendOrderRejected", mock.Anything, mock.Anything)
	})

	t.Run("rejected order uses the rejection template", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		gateway.On("SendOrderRejected", mock.Anything, expected).Return(nil).Once()

		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, testPurchasingPhone, nil)
		err := notifier.Notify(ctx, order.ID, DecisionRejected, "sin stock")

		require.NoError(t, err)
		gateway.AssertExpectations(t)
	})

	t.Run("gateway failure is returned and order state is untouched", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		gateway.On("SendOrderConfirmed", mock.Anything, mock.Anything).Return(integration.ErrGatewayRequestFailed)

		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, testPurchasingPhone, nil)
		err := notifier.Notify(ctx, order.ID, DecisionConfirmed, "")

		assert.ErrorIs(t, err, integration.ErrGatewayRequestFailed)
		found, err := store.orders.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.OrderStatusPending, found.Status)
		assert.Equal(t, procurement.NotificationPending, found.Notification)
	})

	t.Run("unknown decision", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, testPurchasingPhone, nil)

		err := notifier.Notify(ctx, order.ID, Decision("maybe"), "")
		assert.ErrorIs(t, err, ErrInvalidDecision)
	})

	t.Run("purchasing phone not configured", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, "", nil)

		err := notifier.Notify(ctx, order.ID, DecisionConfirmed, "")
		assert.ErrorIs(t, err, ErrPurchasingPhoneMissing)
	})

	t.Run("unknown order", func(t *testing.T) {
		gateway := new(MockMessagingGateway)
		notifier := NewDecisionNotifier(store.orders, store.providers, gateway, testPortalURL, testPurchasingPhone, nil)

		err := notifier.Notify(ctx, uuid.New(), DecisionConfirmed, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
