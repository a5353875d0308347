package siesa

import (
	"errors"
	"strings"
)

// PageSize is the fixed number of records per ERP report page
const PageSize = 100

const (
	// DefaultBaselinePage is the first page inspected when no frontier has been remembered yet
	DefaultBaselinePage = 1360
	// DefaultMaxPage bounds page discovery
	DefaultMaxPage = 5000
	// DefaultTimeoutSeconds is the per-request HTTP timeout
	DefaultTimeoutSeconds = 30
)

// Errors for Siesa configuration
var (
	ErrConfigMissingBaseURL    = errors.New("siesa: base url is required")
	ErrConfigMissingConniKey   = errors.New("siesa: conni key is required")
	ErrConfigMissingConniToken = errors.New("siesa: conni token is required")
	ErrConfigInvalidPageRange  = errors.New("siesa: baseline page must be positive and below max page")
)

// Config holds configuration for the Siesa reporting API
type Config struct {
	// BaseURL is the standard-query endpoint including company and query description,
	// e.g. https://host/api/v3/ejecutarconsultaestandar?idCompania=7129&descripcion=API_v2_Compras_Ordenes
	BaseURL string
	// ConniKey is sent in the conniKey header
	ConniKey string
	// ConniToken is sent in the conniToken header
	ConniToken string
	// BaselinePage is where page discovery starts when no frontier is remembered
	BaselinePage int
	// MaxPage is the exclusive upper bound for page discovery
	MaxPage int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if c.ConniKey == "" {
		return ErrConfigMissingConniKey
	}
	if c.ConniToken == "" {
		return ErrConfigMissingConniToken
	}
	if c.BaselinePage == 0 {
		c.BaselinePage = DefaultBaselinePage
	}
	if c.MaxPage == 0 {
		c.MaxPage = DefaultMaxPage
	}
	if c.BaselinePage < 1 || c.BaselinePage >= c.MaxPage {
		return ErrConfigInvalidPageRange
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}
