package procurement

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMapLine(t *testing.T) {
	tests := []struct {
		name      string
		raw       integration.RawLine
		unitPrice string
		quantity  string
		subtotal  string
		tax       string
		total     string
	}{
		{
			name:      "locale formatted price",
			raw:       integration.RawLine{UnitPrice: "10.000,00", Quantity: "2"},
			unitPrice: "10000", quantity: "2", subtotal: "20000", tax: "3800", total: "23800",
		},
		{
			name:      "plain scaled integer",
			raw:       integration.RawLine{UnitPrice: "500000", Quantity: "1"},
			unitPrice: "5000", quantity: "1", subtotal: "5000", tax: "950", total: "5950",
		},
		{
			name:      "numeric price with decimals",
			raw:       integration.RawLine{UnitPrice: "1234.5", Quantity: "3.0000"},
			unitPrice: "123.45", quantity: "3", subtotal: "370.35", tax: "70.37", total: "440.72",
		},
		{
			name:      "comma quantity",
			raw:       integration.RawLine{UnitPrice: "100", Quantity: "1,5"},
			unitPrice: "1", quantity: "1.5", subtotal: "1.5", tax: "0.29", total: "1.79",
		},
		{
			name:      "sub-cent tax rounds to zero",
			raw:       integration.RawLine{UnitPrice: "1", Quantity: "1"},
			unitPrice: "0.01", quantity: "1", subtotal: "0.01", tax: "0", total: "0.01",
		},
		{
			name:      "sub-cent tax rounds up",
			raw:       integration.RawLine{UnitPrice: "3", Quantity: "1"},
			unitPrice: "0.03", quantity: "1", subtotal: "0.03", tax: "0.01", total: "0.04",
		},
		{
			name:      "fractional quantity subtotal rounds to cents",
			raw:       integration.RawLine{UnitPrice: "1", Quantity: "1,5"},
			unitPrice: "0.01", quantity: "1.5", subtotal: "0.02", tax: "0", total: "0.02",
		},
		{
			name:      "malformed price becomes zero",
			raw:       integration.RawLine{UnitPrice: "N/A", Quantity: "4"},
			unitPrice: "0", quantity: "4", subtotal: "0", tax: "0", total: "0",
		},
		{
			name:      "malformed quantity becomes zero",
			raw:       integration.RawLine{UnitPrice: "10.000,00", Quantity: "dos"},
			unitPrice: "10000", quantity: "0", subtotal: "0", tax: "0", total: "0",
		},
		{
			name:      "empty fields",
			raw:       integration.RawLine{},
			unitPrice: "0", quantity: "0", subtotal: "0", tax: "0", total: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := MapLine(tt.raw)
			assert.True(t, dec(tt.unitPrice).Equal(line.Amounts.UnitPrice), "unit price %s", line.Amounts.UnitPrice)
			assert.True(t, dec(tt.quantity).Equal(line.Amounts.Quantity), "quantity %s", line.Amounts.Quantity)
			assert.True(t, dec(tt.subtotal).Equal(line.Amounts.Subtotal), "subtotal %s", line.Amounts.Subtotal)
			assert.True(t, dec(tt.tax).Equal(line.Amounts.Tax), "tax %s", line.Amounts.Tax)
			assert.True(t, dec(tt.total).Equal(line.Amounts.Total), "total %s", line.Amounts.Total)
		})
	}
}

func TestMapLine_OrderTotalsMatchLines(t *testing.T) {
	order, err := procurement.NewPurchaseOrder(uuid.New(), "4521", procurement.OrderHeader{})
	require.NoError(t, err)

	var (
		lines []procurement.OrderLine
		sum   = decimal.Zero
	)
	for i, price := range []string{"1", "3", "1234.5", "7"} {
		mapped := MapLine(integration.RawLine{UnitPrice: price, Quantity: "1,5"})
		line, err := procurement.NewOrderLine(order.ID, fmt.Sprintf("REF-%d", i), "Tornillo", mapped.Amounts)
		require.NoError(t, err)
		lines = append(lines, *line)
		sum = sum.Add(line.Total)
	}

	order.RecomputeTotals(lines)
	assert.True(t, sum.Equal(order.Total), "order total %s, line sum %s", order.Total, sum)
	assert.True(t, order.Subtotal.Add(order.Tax).Equal(order.Total))
}

func TestMapLine_Text(t *testing.T) {
	line := MapLine(integration.RawLine{
		Reference:      "  REF-01 ",
		Description:    "Pastilla de freno cerámica",
		GlobalDiscount: "1.500,00",
	})

	assert.Equal(t, "REF-01", line.Reference)
	assert.Equal(t, "Pastilla de freno cerámica", line.Description)
	assert.True(t, dec("1500").Equal(line.GlobalDiscount))
}

func TestMapHeader(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	header := MapHeader(integration.RawLine{
		DocumentType: "FOC",
		InternalID:   " 4512 ",
		OrderDate:    "2025-03-10T00:00:00",
		Reference:    "REF-01",
		Notes:        "Entregar en bodega 2",
		BuyerName:    "Muelles y Frenos",
	}, loc)

	assert.Equal(t, "FOC", header.DocumentType)
	assert.Equal(t, " 4512 ", header.ExternalID)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), header.OrderDate)
	assert.Equal(t, "Entregar en bodega 2", header.Notes)
	assert.Equal(t, "Muelles y Frenos", header.BuyerName)
}

func TestParseERPTime(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)

	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"local timestamp", "2025-03-10T09:15:00", time.Date(2025, 3, 10, 9, 15, 0, 0, loc)},
		{"milliseconds", "2025-03-10T09:15:00.250", time.Date(2025, 3, 10, 9, 15, 0, 250000000, loc)},
		{"space separated", "2025-03-10 09:15:00", time.Date(2025, 3, 10, 9, 15, 0, 0, loc)},
		{"date only", "2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, loc)},
		{"explicit offset", "2025-03-10T14:15:00Z", time.Date(2025, 3, 10, 14, 15, 0, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "ayer", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseERPTime(tt.input, loc)
			assert.True(t, tt.expected.Equal(got), "got %v", got)
		})
	}
}
