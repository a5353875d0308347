package whatsapp

import (
	"errors"
	"strings"
)

const (
	// DefaultTimeoutSeconds is the per-request HTTP timeout
	DefaultTimeoutSeconds = 15
	// DefaultRegion is the region used to interpret national phone numbers
	DefaultRegion = "CO"
)

// Errors for gateway configuration
var (
	ErrConfigMissingBaseURL = errors.New("whatsapp: base url is required")
	ErrConfigMissingToken   = errors.New("whatsapp: token is required")
)

// Config holds configuration for the WhatsApp messaging gateway
type Config struct {
	// BaseURL is the gateway endpoint; the notification type is sent as the tipo query parameter
	BaseURL string
	// Token is sent in the Token header
	Token string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// DefaultRegion is the ISO region used to validate phone numbers without country code
	DefaultRegion string
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if c.Token == "" {
		return ErrConfigMissingToken
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.DefaultRegion == "" {
		c.DefaultRegion = DefaultRegion
	}
	return nil
}
