package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hyperschedule/hyperschedule-sub000/internal/dto"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
	"github.com/hyperschedule/hyperschedule-sub000/pkg/response"
)

// CatalogHandler 课程目录 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
	term       model.TermIdentifier
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService, term model.TermIdentifier) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, term: term}
}

// ListSections 获取已入库的目录，按链接输出顺序
// GET /api/v1/sections?term=SP2023
// GET /api/v1/sections?all=true
func (h *CatalogHandler) ListSections(c *gin.Context) {
	var req dto.SectionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数校验失败")
		return
	}

	var term *model.TermIdentifier
	if !req.All {
		t := h.term
		if req.Term != "" {
			parsed, err := model.ParseTermIdentifier(req.Term)
			if err != nil {
				response.BadRequest(c, "学期格式错误")
				return
			}
			t = parsed
		}
		term = &t
	}

	sections, err := h.catalogSvc.Sections(c.Request.Context(), term)
	if err != nil {
		response.InternalError(c)
		return
	}
	if sections == nil {
		sections = []model.Section{}
	}

	resp := dto.SectionListResponse{Total: len(sections), Sections: sections}
	if term != nil {
		resp.Term = term.String()
	}
	response.OK(c, resp)
}
