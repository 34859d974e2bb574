package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperschedule/hyperschedule-sub000/config"
	"github.com/hyperschedule/hyperschedule-sub000/internal/fetcher"
	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/location"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/pkg/database"
	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
)

// app 各子命令共用的基础依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	term    model.TermIdentifier
	sources []fetcher.Source
	store   *fetcher.FileStore
}

func newApp() (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	term, err := model.ParseTermIdentifier(cfg.App.CurrentTerm)
	if err != nil {
		return nil, err
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, term.String())
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		term:    term,
		sources: fetcher.WithIntervals(fetcher.DefaultSources(), cfg.Sources.Intervals),
		store:   fetcher.NewFileStore(cfg.Data.Dir, logger.Named(applogger.ComponentFetcher)),
	}, nil
}

func (a *app) newClient() *fetcher.Client {
	up := a.cfg.Upstream
	return fetcher.NewClient(&fetcher.ClientConfig{
		BaseURL:      up.BaseURL,
		APIKey:       up.APIKey,
		APIKeyHeader: up.APIKeyHeader,
		Timeout:      up.Timeout,
		RateLimit:    up.RateLimit,
		RateBurst:    up.RateBurst,
		UserAgent:    up.UserAgent,
	})
}

// newLinker 开发环境严格校验，生产环境告警后丢弃非法 Section
func (a *app) newLinker() (*linker.Linker, error) {
	resolver, err := location.NewDefaultResolver(a.logger.Named(applogger.ComponentLocation))
	if err != nil {
		return nil, fmt.Errorf("加载楼宇表失败: %w", err)
	}
	return linker.New(resolver, linker.Options{
		Strict:       !a.cfg.App.IsProduction(),
		CourseFormat: linker.CourseFormat(a.cfg.Sources.CourseFormat),
	}, a.logger.Named(applogger.ComponentLinker)), nil
}

// openDB 连接数据库并执行迁移
func (a *app) openDB() (*gorm.DB, error) {
	db, err := database.NewDB(&a.cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, a.logger); err != nil {
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, _ := db.DB(); sqlDB != nil {
		_ = sqlDB.Close()
	}
}
