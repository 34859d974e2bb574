package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyperschedule/hyperschedule-sub000/internal/dto"
	"github.com/hyperschedule/hyperschedule-sub000/internal/fetcher"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
	"github.com/hyperschedule/hyperschedule-sub000/pkg/response"
)

// SchedulerStatus 调度器运行状态，由 *fetcher.Scheduler 实现
type SchedulerStatus interface {
	Status() []fetcher.SourceStatus
	Pending() int64
}

// OpsHandler 运维 HTTP 处理器
type OpsHandler struct {
	sched      SchedulerStatus
	catalogSvc service.CatalogService
	term       model.TermIdentifier
}

// NewOpsHandler 创建 OpsHandler
func NewOpsHandler(sched SchedulerStatus, catalogSvc service.CatalogService, term model.TermIdentifier) *OpsHandler {
	return &OpsHandler{sched: sched, catalogSvc: catalogSvc, term: term}
}

// Status 各数据源抓取状态与最近一轮链接统计
// GET /api/v1/status
func (h *OpsHandler) Status(c *gin.Context) {
	resp := dto.StatusResponse{
		Term:    h.term.String(),
		Pending: h.sched.Pending(),
		Sources: h.sched.Status(),
		Now:     time.Now(),
	}
	snap, err := h.catalogSvc.LastLink()
	switch {
	case err == nil:
		resp.LastLink = snap
	case !errors.Is(err, service.ErrNoSnapshot):
		response.InternalError(c)
		return
	}
	response.OK(c, resp)
}

// Ready 本进程完成首轮链接，或数据库中已有当前学期的目录（从磁盘缓存启动时）即视为就绪
// GET /ready
func (h *OpsHandler) Ready(c *gin.Context) {
	ready, err := h.catalogSvc.Ready(c.Request.Context(), h.term)
	if err != nil {
		response.ServiceUnavailable(c, "目录状态查询失败")
		return
	}
	if !ready {
		response.ServiceUnavailable(c, "尚无可用目录")
		return
	}
	response.OK(c, gin.H{"status": "ready"})
}
