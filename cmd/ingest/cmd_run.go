package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/api/handler"
	"github.com/hyperschedule/hyperschedule-sub000/internal/api/router"
	"github.com/hyperschedule/hyperschedule-sub000/internal/fetcher"
	"github.com/hyperschedule/hyperschedule-sub000/internal/repository"
	"github.com/hyperschedule/hyperschedule-sub000/internal/service"
	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
	"github.com/hyperschedule/hyperschedule-sub000/pkg/redis"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "常驻运行抓取调度器",
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	logger := a.logger
	defer applogger.Sync(logger)

	logger.Info("应用启动中...",
		zap.String("term", a.term.String()),
		zap.String("env", a.cfg.App.Env),
		zap.String("log_level", a.cfg.Log.Level),
	)

	// 3. 连接数据库并迁移
	db, err := a.openDB()
	if err != nil {
		logger.Error("数据库初始化失败", zap.Error(err))
		return err
	}
	defer closeDB(db)

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	if a.cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&a.cfg.Redis, logger.Named(applogger.ComponentRedis))
		if err != nil {
			logger.Warn("Redis 连接失败，更新通知与状态上报将不可用", zap.Error(err))
			rdb = nil
		}
	}
	defer rdb.Close()

	// 5. 依赖注入: Repository → Service → Scheduler
	lk, err := a.newLinker()
	if err != nil {
		return err
	}
	var notifier service.Notifier
	if rdb != nil {
		notifier = rdb
	}
	svc := service.NewService(repository.NewRepository(db), lk, notifier, logger.Named(applogger.ComponentService))

	sched := fetcher.NewScheduler(a.sources, a.term, a.newClient(), a.store, svc.Catalog, logger.Named(applogger.ComponentFetcher))
	if rdb != nil {
		sched.WithRecorder(rdb)
	}

	// 6. 监听系统信号；停止信号只在轮次边界生效
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. 运维 HTTP 端点
	var srv *http.Server
	if a.cfg.Ops.Enabled {
		engine := router.Setup(handler.NewHandler(svc, sched, a.term), logger)
		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", a.cfg.Ops.Port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("运维 HTTP 服务已启动", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("运维 HTTP 服务异常", zap.Error(err))
			}
		}()
	}

	// 8. 启动调度器，阻塞到停止信号且进行中的入库全部完成
	runErr := sched.Run(ctx)
	if runErr != nil {
		logger.Error("调度器异常退出", zap.Error(runErr))
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("运维 HTTP 服务关闭异常", zap.Error(err))
		}
	}

	logger.Info("服务已关闭")
	return runErr
}
