package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
)

// Logger 请求日志中间件（基于 Zap 结构化日志）
// 探活请求只记 Debug，避免淹没调度日志
func Logger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named(applogger.ComponentOps)
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case status >= 500:
			logger.Error("请求处理失败", fields...)
		case status >= 400:
			logger.Warn("客户端错误", fields...)
		case c.FullPath() == "/health" || c.FullPath() == "/ready":
			logger.Debug("探活请求", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
