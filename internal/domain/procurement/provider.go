package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/supplier-portal/internal/domain/shared"
)

// ProviderStatus represents the status of a provider
type ProviderStatus string

const (
	ProviderStatusActive   ProviderStatus = "activo"
	ProviderStatusInactive ProviderStatus = "inactivo"
)

// Placeholder contact data for providers first seen in an ERP batch.
const (
	PlaceholderProviderName = "Proveedor Sin Nombre"
	PlaceholderMobile       = "0000000000"
	PlaceholderPhone        = "N/A"
)

// Provider is a supplier identified by its tax ID (NIT).
// Providers are never deleted, only deactivated.
type Provider struct {
	shared.BaseEntity
	NIT          string
	LegalName    string
	Email        string
	Mobile       string
	Phone        string
	City         string
	Address      string
	PasswordHash string
	Status       ProviderStatus
}

// NewPlaceholderProvider creates an active provider with placeholder contact data.
// passwordHash must be a hash nobody knows the secret of; the provider sets a
// real password through the portal's registration flow.
func NewPlaceholderProvider(nit, legalName, passwordHash string) (*Provider, error) {
	nit = strings.TrimSpace(nit)
	if nit == "" {
		return nil, shared.NewDomainError("INVALID_NIT", "Provider NIT cannot be empty")
	}
	if passwordHash == "" {
		return nil, shared.NewDomainError("INVALID_PASSWORD_HASH", "Provider password hash cannot be empty")
	}

	legalName = strings.TrimSpace(legalName)
	if legalName == "" {
		legalName = PlaceholderProviderName
	}

	return &Provider{
		BaseEntity:   shared.NewBaseEntity(),
		NIT:          nit,
		LegalName:    legalName,
		Email:        PlaceholderEmail(nit),
		Mobile:       PlaceholderMobile,
		Phone:        PlaceholderPhone,
		PasswordHash: passwordHash,
		Status:       ProviderStatusActive,
	}, nil
}

// PlaceholderEmail returns the synthetic email assigned to auto-created providers
func PlaceholderEmail(nit string) string {
	return fmt.Sprintf("prov_%s@sistema.com", nit)
}

// IsActive returns true if the provider is active
func (p *Provider) IsActive() bool {
	return p.Status == ProviderStatusActive
}

// HasPlaceholderMobile reports whether the provider still carries the synthetic mobile number
func (p *Provider) HasPlaceholderMobile() bool {
	return strings.TrimSpace(p.Mobile) == PlaceholderMobile
}

// Deactivate marks the provider as inactive
func (p *Provider) Deactivate() {
	p.Status = ProviderStatusInactive
	p.Touch(time.Now())
}
