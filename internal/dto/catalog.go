package dto

import (
	"time"

	"github.com/hyperschedule/hyperschedule-sub000/internal/fetcher"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
)

// ── 目录模块 DTO ──

// SectionListRequest 目录查询参数，term 为空时使用当前学期
type SectionListRequest struct {
	Term string `form:"term" binding:"omitempty,len=6"`
	All  bool   `form:"all"`
}

// SectionListResponse 目录列表响应
type SectionListResponse struct {
	Term     string          `json:"term,omitempty"`
	Total    int             `json:"total"`
	Sections []model.Section `json:"sections"`
}

// ── 运维模块 DTO ──

// StatusResponse 调度器状态响应
type StatusResponse struct {
	Term     string                 `json:"term"`
	Pending  int64                  `json:"pending"`
	Sources  []fetcher.SourceStatus `json:"sources"`
	LastLink *service.LinkSnapshot  `json:"last_link,omitempty"`
	Now      time.Time              `json:"now"`
}
