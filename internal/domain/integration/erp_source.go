package integration

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// ERPSource Errors
// ---------------------------------------------------------------------------

var (
	ErrERPNotConfigured   = errors.New("integration: erp source not configured")
	ErrERPUnavailable     = errors.New("integration: erp source temporarily unavailable")
	ErrERPRequestFailed   = errors.New("integration: erp request failed")
	ErrERPInvalidResponse = errors.New("integration: invalid erp response")
)

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// RawLine is one purchase-order line as delivered by the ERP.
// Values are kept as source text; numeric parsing happens in the record mapper.
type RawLine struct {
	DocumentType   string
	DocumentNumber string
	InternalID     string
	ProviderNIT    string
	ProviderName   string
	BuyerName      string
	OrderDate      string
	ApprovedAt     string
	Status         string
	Category       string
	Reference      string
	Description    string
	Quantity       string
	UnitPrice      string
	TaxValue       string
	NetValue       string
	GrossValue     string
	GlobalDiscount string
	Notes          string
}

// GroupKey returns the (provider NIT, document number) key that identifies
// the logical order this line belongs to.
func (l RawLine) GroupKey() string {
	return l.ProviderNIT + "-" + l.DocumentNumber
}

// ---------------------------------------------------------------------------
// ERPSource Port
// ---------------------------------------------------------------------------

// ERPSource reads purchase-order lines from the ERP system of record
type ERPSource interface {
	// FetchLatestBatch locates the most recent page of order lines and returns its records.
	// An empty slice with a nil error means no data is available yet.
	FetchLatestBatch(ctx context.Context) ([]RawLine, error)
}
