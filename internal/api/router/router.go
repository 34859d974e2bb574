package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperschedule/hyperschedule-sub000/internal/api/handler"
	"github.com/hyperschedule/hyperschedule-sub000/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(h *handler.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/ready", h.Ops.Ready)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(rate.Limit(5), 20))
	{
		v1.GET("/status", h.Ops.Status)
		v1.GET("/sections", middleware.CacheFor(time.Minute), h.Catalog.ListSections)
	}

	return r
}
