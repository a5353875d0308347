package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
	"github.com/erp/supplier-portal/internal/interfaces/http/middleware"
)

// DecisionSender delivers an order decision to the purchasing team
type DecisionSender interface {
	Notify(ctx context.Context, orderID uuid.UUID, decision appprocurement.Decision, reason string) error
}

// OrderHandler exposes order decision notifications
type OrderHandler struct {
	BaseHandler
	decisions DecisionSender
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(decisions DecisionSender) *OrderHandler {
	return &OrderHandler{decisions: decisions}
}

// DecisionNotificationRequest is the body of the decision notification route
type DecisionNotificationRequest struct {
	Decision string `json:"decision" binding:"required,oneof=confirmed rejected"`
	Reason   string `json:"reason" binding:"max=500"`
}

// DecisionNotificationResponse acknowledges a delivered decision message
type DecisionNotificationResponse struct {
	OrderID  uuid.UUID `json:"order_id"`
	Decision string    `json:"decision"`
	Sent     bool      `json:"sent"`
}

// RegisterRoutes mounts the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/:id/decision-notifications", h.SendDecisionNotification)
}

// SendDecisionNotification tells purchasing that the provider confirmed or rejected the order.
// Order state is never changed here.
//
// @ID           sendOrderDecisionNotification
// @Summary      Notify purchasing of an order decision
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase order ID"
// @Param        request body DecisionNotificationRequest true "Decision"
// @Success      200 {object} dto.Response{data=DecisionNotificationResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders/{id}/decision-notifications [post]
func (h *OrderHandler) SendDecisionNotification(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var req DecisionNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	orderID := uuid.MustParse(uri.ID)
	err := h.decisions.Notify(c.Request.Context(), orderID, appprocurement.Decision(req.Decision), req.Reason)
	switch {
	case err == nil:
		h.Success(c, DecisionNotificationResponse{OrderID: orderID, Decision: req.Decision, Sent: true})
	case errors.Is(err, appprocurement.ErrInvalidDecision):
		h.BadRequest(c, err.Error())
	case errors.Is(err, appprocurement.ErrPurchasingPhoneMissing):
		h.Fail(c, dto.ErrCodeNotConfigured, "Purchasing phone is not configured")
	case errors.Is(err, shared.ErrNotFound):
		h.Fail(c, dto.ErrCodeNotFound, "Order not found")
	default:
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.HandleError(c, err)
			return
		}
		_ = c.Error(err)
		h.Fail(c, dto.ErrCodeUpstream, "Decision notification could not be delivered")
	}
}
