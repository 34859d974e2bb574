package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/repository"
)

// ── 目录模块业务错误 ──

var ErrNoSnapshot = errors.New("尚未完成任何一轮链接")

// Notifier 目录更新通知（例如 Redis 发布），可为空
type Notifier interface {
	PublishSectionsUpdated(ctx context.Context, term model.TermIdentifier, count int) error
}

// LinkSnapshot 最近一轮链接结果
type LinkSnapshot struct {
	Term     model.TermIdentifier `json:"term"`
	Stats    linker.Stats         `json:"stats"`
	LinkedAt time.Time            `json:"linked_at"`
	Elapsed  time.Duration        `json:"elapsed"`
}

// CatalogService 课程目录业务接口：链接原始数据并整学期替换入库
type CatalogService interface {
	Link(files linker.Files, term model.TermIdentifier) ([]model.Section, error)
	Persist(ctx context.Context, term model.TermIdentifier, sections []model.Section) error
	// Rebuild 链接后立即入库，供命令行一次性执行
	Rebuild(ctx context.Context, files linker.Files, term model.TermIdentifier) (int, error)
	Sections(ctx context.Context, term *model.TermIdentifier) ([]model.Section, error)
	LastLink() (*LinkSnapshot, error)
	// Ready 本进程已完成链接，或数据库中已有该学期的目录
	Ready(ctx context.Context, term model.TermIdentifier) (bool, error)
}

type catalogService struct {
	repo     *repository.Repository
	linker   *linker.Linker
	notifier Notifier
	logger   *zap.Logger

	mu   sync.RWMutex
	last *LinkSnapshot
}

// NewCatalogService 创建 CatalogService 实例，notifier 可为 nil
func NewCatalogService(repo *repository.Repository, lk *linker.Linker, notifier Notifier, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, linker: lk, notifier: notifier, logger: logger}
}

// ────────────────────── Link ──────────────────────

func (s *catalogService) Link(files linker.Files, term model.TermIdentifier) ([]model.Section, error) {
	start := time.Now()
	sections, stats, err := s.linker.Link(files, term)
	if err != nil {
		s.logger.Error("链接失败", zap.String("term", term.String()), zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)

	s.logger.Info("链接完成",
		zap.String("term", term.String()),
		zap.Int("courses", stats.Courses),
		zap.Int("sections", stats.Output),
		zap.Int("flagged", stats.Flagged),
		zap.Int("dropped", stats.Dropped),
		zap.Int("orphans", stats.OrphanSections),
		zap.Duration("elapsed", elapsed),
	)

	s.mu.Lock()
	s.last = &LinkSnapshot{Term: term, Stats: stats, LinkedAt: start, Elapsed: elapsed}
	s.mu.Unlock()
	return sections, nil
}

// ────────────────────── Persist ──────────────────────

func (s *catalogService) Persist(ctx context.Context, term model.TermIdentifier, sections []model.Section) error {
	if err := s.repo.Section.ReplaceByTerm(ctx, term, sections); err != nil {
		s.logger.Error("目录入库失败", zap.String("term", term.String()), zap.Error(err))
		return fmt.Errorf("目录入库失败: %w", err)
	}
	s.logger.Info("目录已入库", zap.String("term", term.String()), zap.Int("sections", len(sections)))

	if s.notifier != nil {
		// 通知失败不影响入库结果
		if err := s.notifier.PublishSectionsUpdated(ctx, term, len(sections)); err != nil {
			s.logger.Warn("发布目录更新通知失败", zap.Error(err))
		}
	}
	return nil
}

func (s *catalogService) Rebuild(ctx context.Context, files linker.Files, term model.TermIdentifier) (int, error) {
	sections, err := s.Link(files, term)
	if err != nil {
		return 0, err
	}
	if err := s.Persist(ctx, term, sections); err != nil {
		return 0, err
	}
	return len(sections), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *catalogService) Sections(ctx context.Context, term *model.TermIdentifier) ([]model.Section, error) {
	sections, err := s.repo.Section.List(ctx, term)
	if err != nil {
		s.logger.Error("查询目录失败", zap.Error(err))
		return nil, err
	}
	return sections, nil
}

func (s *catalogService) LastLink() (*LinkSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, ErrNoSnapshot
	}
	snap := *s.last
	return &snap, nil
}

func (s *catalogService) Ready(ctx context.Context, term model.TermIdentifier) (bool, error) {
	s.mu.RLock()
	linked := s.last != nil
	s.mu.RUnlock()
	if linked {
		return true, nil
	}
	n, err := s.repo.Section.CountByTerm(ctx, term)
	if err != nil {
		s.logger.Error("查询目录数量失败", zap.Error(err))
		return false, err
	}
	return n > 0, nil
}
