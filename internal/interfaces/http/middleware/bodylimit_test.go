package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/decision", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "unreadable body")
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	decision := `{"decision":"rejected","reason":"Precio fuera de lista"}`

	t.Run("decision payload passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(decision))
		newBodyLimitRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "56", w.Body.String())
	})

	t.Run("declared length over the limit is rejected before reading", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(strings.Repeat("x", 300)))
		req.Header.Set(RequestIDHeader, "req-body-1")
		newBodyLimitRouter(100).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
		assert.Contains(t, w.Body.String(), "req-body-1")
	})

	t.Run("streamed body is capped while reading", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(strings.Repeat("x", 300)))
		req.ContentLength = -1
		newBodyLimitRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
