package dto

import (
	"net/http"
	"strings"
)

// API error codes. Every code has the ERR_ prefix and a fixed HTTP status.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput covers domain validation failures, e.g. an empty NIT
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is returned while a sync pass is already running
	ErrCodeConflict     = "ERR_CONFLICT"
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	// ErrCodeUpstream is used when the ERP or the messaging gateway fails
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodeNotConfigured is used when a worker or a setting is switched off
	ErrCodeNotConfigured = "ERR_NOT_CONFIGURED"
	ErrCodeRateLimited   = "ERR_RATE_LIMITED"
)

var statusByCode = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,

	ErrCodeUpstream:      http.StatusBadGateway,
	ErrCodeNotConfigured: http.StatusServiceUnavailable,
	ErrCodeRateLimited:   http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domain sentinel codes from the shared package
var apiCodeByDomainCode = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Entity validation codes (INVALID_NIT, INVALID_ORDER, ...) become ERR_INVALID_INPUT;
// API codes and unknown codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := apiCodeByDomainCode[code]; ok {
		return apiCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return code
}
