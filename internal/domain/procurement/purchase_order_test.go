package procurement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPurchaseOrder(t *testing.T) {
	providerID := uuid.New()
	orderDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("creates pending order with zero aggregates", func(t *testing.T) {
		order, err := NewPurchaseOrder(providerID, "123", OrderHeader{
			ExternalID:   " 88123 ",
			DocumentType: "FOC",
			OrderDate:    orderDate,
			Reference:    "REF-1",
		})
		require.NoError(t, err)

		assert.Equal(t, providerID, order.ProviderID)
		assert.Equal(t, "123", order.DocumentNumber)
		require.NotNil(t, order.ExternalID)
		assert.Equal(t, "88123", *order.ExternalID)
		assert.Equal(t, orderDate, order.OrderDate)
		assert.Equal(t, "REF-1", order.Reference)
		assert.Equal(t, "N/A", order.Description)
		assert.Equal(t, "N/A", order.City)
		assert.True(t, order.Subtotal.IsZero())
		assert.True(t, order.Tax.IsZero())
		assert.True(t, order.Total.IsZero())
		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, DeliveryStatusNotDelivered, order.DeliveryStatus)
		assert.Equal(t, NotificationPending, order.Notification)
		assert.True(t, order.IsNotificationPending())
		assert.Nil(t, order.NotifiedAt)
	})

	t.Run("leaves external id nil when blank", func(t *testing.T) {
		order, err := NewPurchaseOrder(providerID, "123", OrderHeader{ExternalID: "  "})
		require.NoError(t, err)
		assert.Nil(t, order.ExternalID)
	})

	t.Run("fails without provider", func(t *testing.T) {
		order, err := NewPurchaseOrder(uuid.Nil, "123", OrderHeader{})
		assert.Nil(t, order)
		assert.Error(t, err)
	})

	t.Run("fails without document number", func(t *testing.T) {
		order, err := NewPurchaseOrder(providerID, " ", OrderHeader{})
		assert.Nil(t, order)
		assert.Error(t, err)
	})
}

func TestPurchaseOrder_RecomputeTotals(t *testing.T) {
	order, err := NewPurchaseOrder(uuid.New(), "123", OrderHeader{})
	require.NoError(t, err)

	lines := []OrderLine{
		{Tax: decimal.NewFromInt(3800), Total: decimal.NewFromInt(23800)},
		{Tax: decimal.NewFromInt(950), Total: decimal.NewFromInt(5950)},
	}

	order.RecomputeTotals(lines)

	assert.True(t, decimal.NewFromInt(29750).Equal(order.Total), order.Total.String())
	assert.True(t, decimal.NewFromInt(4750).Equal(order.Tax), order.Tax.String())
	assert.True(t, decimal.NewFromInt(25000).Equal(order.Subtotal), order.Subtotal.String())

	t.Run("no lines resets to zero", func(t *testing.T) {
		order.RecomputeTotals(nil)
		assert.True(t, order.Total.IsZero())
		assert.True(t, order.Tax.IsZero())
		assert.True(t, order.Subtotal.IsZero())
	})
}

func TestFormatOrderNumber(t *testing.T) {
	tests := []struct {
		name     string
		docType  string
		number   string
		expected string
	}{
		{"pads to six digits", "FOC", "123", "FOC-000123"},
		{"defaults type", "", "42", "FOC-000042"},
		{"keeps long numbers", "OC", "1234567", "OC-1234567"},
		{"trims input", " FOC ", " 7 ", "FOC-000007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatOrderNumber(tt.docType, tt.number))
		})
	}
}

func TestNotificationState_String(t *testing.T) {
	assert.Equal(t, "pending", NotificationPending.String())
	assert.Equal(t, "sent", NotificationSent.String())
	assert.Equal(t, "in_flight", NotificationInFlight.String())
	assert.Equal(t, "unknown", NotificationState(9).String())
}
