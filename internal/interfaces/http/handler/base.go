package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/shared"
	"github.com/erp/supplier-portal/internal/infrastructure/logger"
	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
	"github.com/erp/supplier-portal/internal/interfaces/http/middleware"
)

// BaseHandler writes the standard response envelope. Handlers embed it.
type BaseHandler struct{}

// Success writes data with 200
func (BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Fail writes an error envelope; the status is derived from code
func (BaseHandler) Fail(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest writes ERR_BAD_REQUEST with message
func (h BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Fail(c, dto.ErrCodeBadRequest, message)
}

// HandleError maps a domain error to its API code. Any other error is logged
// and answered with a generic ERR_INTERNAL so internals never reach the client.
func (h BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Fail(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}
	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	h.Fail(c, dto.ErrCodeInternal, "An unexpected error occurred")
}
