package service

import (
	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog CatalogService
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	lk *linker.Linker,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		Catalog: NewCatalogService(repo, lk, notifier, logger),
	}
}
