package handler

import (
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog *CatalogHandler
	Ops     *OpsHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, sched SchedulerStatus, term model.TermIdentifier) *Handler {
	return &Handler{
		Catalog: NewCatalogHandler(svc.Catalog, term),
		Ops:     NewOpsHandler(sched, svc.Catalog, term),
	}
}
