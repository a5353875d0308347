package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/supplier-portal/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := map[string]int{
		ErrCodeValidation:    http.StatusBadRequest,
		ErrCodeInvalidInput:  http.StatusBadRequest,
		ErrCodeTokenExpired:  http.StatusUnauthorized,
		ErrCodeForbidden:     http.StatusForbidden,
		ErrCodeNotFound:      http.StatusNotFound,
		ErrCodeConflict:      http.StatusConflict,
		ErrCodeInvalidState:  http.StatusUnprocessableEntity,
		ErrCodeUpstream:      http.StatusBadGateway,
		ErrCodeNotConfigured: http.StatusServiceUnavailable,
		ErrCodeRateLimited:   http.StatusTooManyRequests,
		"ERR_SOMETHING_ELSE": http.StatusInternalServerError,
	}
	for code, status := range tests {
		assert.Equal(t, status, GetHTTPStatus(code), code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("shared sentinels map to API codes with a status", func(t *testing.T) {
		for _, sentinel := range []*shared.DomainError{
			shared.ErrNotFound, shared.ErrAlreadyExists, shared.ErrInvalidInput, shared.ErrInvalidState,
		} {
			code := NormalizeErrorCode(sentinel.Code)
			assert.Contains(t, statusByCode, code, sentinel.Code)
		}
	})

	tests := []struct {
		in, want string
	}{
		{"INVALID_NIT", ErrCodeInvalidInput},
		{"INVALID_DOCUMENT_NUMBER", ErrCodeInvalidInput},
		{ErrCodeUpstream, ErrCodeUpstream},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeErrorCode(tt.in), tt.in)
	}
}

func TestErrorResponses(t *testing.T) {
	t.Run("domain code is normalized", func(t *testing.T) {
		resp := NewErrorResponse("NOT_FOUND", "Order not found")
		require.NotNil(t, resp.Error)
		assert.False(t, resp.Success)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Empty(t, resp.RequestID)
	})

	t.Run("request ID is carried", func(t *testing.T) {
		resp := NewErrorResponseWithRequestID(ErrCodeConflict, "Sync already running", "req-123")
		assert.Equal(t, ErrCodeConflict, resp.Error.Code)
		assert.Equal(t, "req-123", resp.RequestID)
	})

	t.Run("validation details", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "req-789", []ValidationDetail{
			{Field: "decision", Message: "Must be one of: confirmed, rejected"},
			{Field: "reason", Message: "Must be at most 500 characters"},
		})
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "reason", resp.Error.Details[1].Field)
	})
}

func TestResponseJSON(t *testing.T) {
	t.Run("error envelope omits data and empty details", func(t *testing.T) {
		data, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"success": false,
			"error": {"code": "ERR_NOT_FOUND", "message": "Order not found"},
			"request_id": "req-1"
		}`, string(data))
	})

	t.Run("success envelope omits error", func(t *testing.T) {
		data, err := json.Marshal(NewSuccessResponse(map[string]int{"orders_created": 2}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success": true, "data": {"orders_created": 2}}`, string(data))
	})
}
