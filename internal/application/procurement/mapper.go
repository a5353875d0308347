package procurement

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/domain/procurement"
)

// TaxRate is the fixed VAT rate applied to every line
var TaxRate = decimal.New(19, -2)

// priceScale is the fixed-point scale of ERP monetary fields (two implied decimals)
var priceScale = decimal.NewFromInt(100)

// erpTimeLayouts are the timestamp formats seen in ERP reports, most specific first
var erpTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizedLine is a raw ERP line converted to typed values ready for persistence
type NormalizedLine struct {
	Reference      string
	Description    string
	Amounts        procurement.LineAmounts
	GlobalDiscount decimal.Decimal
}

// MapLine converts a raw ERP line into normalized amounts. It performs no I/O
// and never fails: malformed numbers become zero.
//
// Unit price and global discount arrive locale-formatted with two implied
// decimals ("10.000,00"): separators are dropped and the value is divided by 100.
// Subtotal and tax are rounded half away from zero to two decimals.
func MapLine(raw integration.RawLine) NormalizedLine {
	unitPrice := parseScaled(raw.UnitPrice)
	quantity := parseQuantity(raw.Quantity)

	// line amounts are stored at cent precision so order sums match the lines
	subtotal := unitPrice.Mul(quantity).Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)

	return NormalizedLine{
		Reference:   cleanText(raw.Reference),
		Description: cleanText(raw.Description),
		Amounts: procurement.LineAmounts{
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Subtotal:  subtotal,
			Tax:       tax,
			Total:     subtotal.Add(tax),
		},
		GlobalDiscount: parseScaled(raw.GlobalDiscount),
	}
}

// MapHeader extracts the order header fields from the first line of a group
func MapHeader(raw integration.RawLine, loc *time.Location) procurement.OrderHeader {
	return procurement.OrderHeader{
		ExternalID:     raw.InternalID,
		DocumentType:   cleanText(raw.DocumentType),
		OrderDate:      ParseERPTime(raw.OrderDate, loc),
		Reference:      cleanText(raw.Reference),
		Description:    cleanText(raw.Description),
		Notes:          cleanText(raw.Notes),
		BuyerName:      cleanText(raw.BuyerName),
		GlobalDiscount: parseScaled(raw.GlobalDiscount),
	}
}

// ParseERPTime parses an ERP timestamp in loc. Timestamps carrying their own
// offset keep it. Empty or unparsable input yields the zero time.
func ParseERPTime(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range erpTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseScaled parses a fixed-point value with two implied decimals
func parseScaled(s string) decimal.Decimal {
	digits := strings.NewReplacer(".", "", ",", "").Replace(strings.TrimSpace(s))
	if digits == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	return d.Div(priceScale)
}

// parseQuantity parses a plain decimal quantity, accepting a comma decimal separator
func parseQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1)); err == nil {
		return d
	}
	return decimal.Zero
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
