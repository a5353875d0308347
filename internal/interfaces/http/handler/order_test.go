package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
)

type mockDecisionSender struct {
	mock.Mock
}

func (m *mockDecisionSender) Notify(ctx context.Context, orderID uuid.UUID, decision appprocurement.Decision, reason string) error {
	return m.Called(ctx, orderID, decision, reason).Error(0)
}

func newOrderRouter(sender DecisionSender) *gin.Engine {
	router := gin.New()
	NewOrderHandler(sender).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postDecision(router *gin.Engine, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/orders/"+id+"/decision-notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOrderHandler_SendDecisionNotification(t *testing.T) {
	orderID := uuid.New()

	t.Run("rejected with reason", func(t *testing.T) {
		sender := new(mockDecisionSender)
		sender.On("Notify", mock.Anything, orderID, appprocurement.DecisionRejected, "precio no acordado").Return(nil)

		w := postDecision(newOrderRouter(sender), orderID.String(), `{"decision":"rejected","reason":"precio no acordado"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sent":true`)
		sender.AssertExpectations(t)
	})

	t.Run("invalid order id", func(t *testing.T) {
		sender := new(mockDecisionSender)
		w := postDecision(newOrderRouter(sender), "not-a-uuid", `{"decision":"confirmed"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		sender.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown decision is a validation error", func(t *testing.T) {
		sender := new(mockDecisionSender)
		w := postDecision(newOrderRouter(sender), orderID.String(), `{"decision":"maybe"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", fmt.Errorf("find order: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"purchasing phone missing", appprocurement.ErrPurchasingPhoneMissing, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured},
		{"invalid decision", appprocurement.ErrInvalidDecision, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"gateway failure", errors.New("gateway returned 500"), http.StatusBadGateway, dto.ErrCodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(mockDecisionSender)
			sender.On("Notify", mock.Anything, orderID, appprocurement.DecisionConfirmed, "").Return(tt.err)

			w := postDecision(newOrderRouter(sender), orderID.String(), `{"decision":"confirmed"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
