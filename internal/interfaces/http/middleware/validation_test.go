package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
)

type decisionBody struct {
	Decision string `json:"decision" binding:"required,oneof=confirmed rejected"`
	Reason   string `json:"reason" binding:"max=10"`
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/decision", func(c *gin.Context) {
		var body decisionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{name: "valid", body: `{"decision":"confirmed"}`, wantStatus: http.StatusNoContent},
		{name: "missing decision", body: `{}`, wantStatus: http.StatusBadRequest, wantFields: []string{"decision"}},
		{name: "unknown decision", body: `{"decision":"maybe"}`, wantStatus: http.StatusBadRequest, wantFields: []string{"decision"}},
		{
			name:       "both fields invalid",
			body:       `{"decision":"maybe","reason":"far too long a reason"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"decision", "reason"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", "/decision", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusBadRequest {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			var fields []string
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestFormatValidationErrors_BodyErrors(t *testing.T) {
	var body decisionBody

	t.Run("malformed json", func(t *testing.T) {
		err := json.Unmarshal([]byte("{"), &body)
		resp := FormatValidationErrors(err, "req-1")

		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, []dto.ValidationDetail{{Field: "body", Message: "Malformed JSON"}}, resp.Error.Details)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := json.Unmarshal([]byte(`{"decision":3}`), &body)
		resp := FormatValidationErrors(err, "req-2")

		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "decision", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be a string", resp.Error.Details[0].Message)
	})

	t.Run("other errors carry no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/", nil)

		HandleValidationError(c, io.ErrUnexpectedEOF)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.True(t, c.IsAborted())
		assert.NotContains(t, w.Body.String(), `"details"`)
	})
}

func TestValidationMessages(t *testing.T) {
	SetupValidator()
	type query struct {
		Limit int    `form:"limit" binding:"min=1"`
		Note  string `form:"note" binding:"max=3"`
		State string `form:"state" binding:"oneof=pending sent"`
	}

	err := binding.Validator.ValidateStruct(&query{Limit: 0, Note: "toolong", State: "x"})
	resp := FormatValidationErrors(err, "")

	require.Len(t, resp.Error.Details, 3)
	assert.Equal(t, dto.ValidationDetail{Field: "limit", Message: "Must be at least 1"}, resp.Error.Details[0])
	assert.Equal(t, dto.ValidationDetail{Field: "note", Message: "Must be at most 3 characters"}, resp.Error.Details[1])
	assert.Equal(t, dto.ValidationDetail{Field: "state", Message: "Must be one of: pending, sent"}, resp.Error.Details[2])
}
