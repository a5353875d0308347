package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/infrastructure/logger"
	"github.com/erp/supplier-portal/internal/infrastructure/scheduler"
	"github.com/erp/supplier-portal/internal/interfaces/http/dto"
	"github.com/erp/supplier-portal/internal/interfaces/http/middleware"
)

// SyncRunner runs a sync pass on demand and reports scheduler state
type SyncRunner interface {
	TriggerSync(ctx context.Context) (*appprocurement.SyncResult, error)
	Status() scheduler.Status
}

// SyncHistory reads the sync run log
type SyncHistory interface {
	History(ctx context.Context, limit int) ([]appprocurement.SyncRunResponse, error)
	LastSuccessful(ctx context.Context) (*appprocurement.SyncRunResponse, error)
}

// SyncHandler exposes the manual trigger, the run history and scheduler status
type SyncHandler struct {
	BaseHandler
	runner  SyncRunner
	history SyncHistory
	trigger []gin.HandlerFunc
}

// NewSyncHandler creates a new SyncHandler. The trigger handlers run in
// front of the manual sync route only, e.g. a rate limit.
func NewSyncHandler(runner SyncRunner, history SyncHistory, trigger ...gin.HandlerFunc) *SyncHandler {
	return &SyncHandler{runner: runner, history: history, trigger: trigger}
}

// RegisterRoutes mounts the sync and scheduler routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handlers := append(append([]gin.HandlerFunc{}, h.trigger...), h.RunSync)
	rg.POST("/sync/run", handlers...)
	rg.GET("/sync/runs", h.ListRuns)
	rg.GET("/sync/runs/last-successful", h.LastSuccessful)
	rg.GET("/scheduler/status", h.SchedulerStatus)
}

// RunSync runs one sync pass synchronously and returns its result.
// A pass that ran but failed still answers with its result and a 502.
//
// @ID           runSync
// @Summary      Run a sync pass now
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=appprocurement.SyncResult}
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Failure      502 {object} dto.Response{data=appprocurement.SyncResult}
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /sync/run [post]
func (h *SyncHandler) RunSync(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.L(ctx)
	log.Info("Manual sync requested", zap.String("subject", middleware.GetJWTSubject(c)))

	// the pass outlives a disconnected client so its run is still recorded
	result, err := h.runner.TriggerSync(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, scheduler.ErrTickInProgress), errors.Is(err, appprocurement.ErrSyncLocked):
		h.Fail(c, dto.ErrCodeConflict, "A sync is already in progress")
		return
	case errors.Is(err, scheduler.ErrSyncDisabled):
		h.Fail(c, dto.ErrCodeNotConfigured, "Sync worker is disabled")
		return
	case result != nil && !result.Success:
		log.Warn("Manual sync failed", zap.String("run_id", result.RunID.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.Response{
			Success:   false,
			Data:      result,
			Error:     &dto.ErrorInfo{Code: dto.ErrCodeUpstream, Message: result.Error},
			RequestID: middleware.GetRequestID(c),
		})
		return
	case err != nil:
		log.Error("Manual sync could not run", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListRuns returns recent sync runs, newest first
//
// @ID           listSyncRuns
// @Summary      List recent sync runs
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Maximum runs to return"
// @Success      200 {object} dto.Response{data=[]appprocurement.SyncRunResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var q dto.LimitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	runs, err := h.history.History(c.Request.Context(), q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, runs)
}

// LastSuccessful returns the run that defines the current watermark
//
// @ID           getLastSuccessfulSyncRun
// @Summary      Get the last successful sync run
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=appprocurement.SyncRunResponse}
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /sync/runs/last-successful [get]
func (h *SyncHandler) LastSuccessful(c *gin.Context) {
	run, err := h.history.LastSuccessful(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if run == nil {
		h.Fail(c, dto.ErrCodeNotFound, "No successful sync yet")
		return
	}
	h.Success(c, run)
}

// SchedulerStatus returns a snapshot of the pipeline scheduler
//
// @ID           getSchedulerStatus
// @Summary      Get scheduler status
// @Tags         scheduler
// @Produce      json
// @Success      200 {object} dto.Response{data=scheduler.Status}
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /scheduler/status [get]
func (h *SyncHandler) SchedulerStatus(c *gin.Context) {
	h.Success(c, h.runner.Status())
}
