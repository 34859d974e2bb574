package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders 运维端点只返回 JSON，禁止被嵌入、执行脚本或缓存
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		c.Next()
	}
}

// CacheFor 允许共享缓存保留响应 d，覆盖 SecurityHeaders 的 no-store
// 目录每轮链接才会变化，缓存时长不应超过最短的抓取间隔
func CacheFor(d time.Duration) gin.HandlerFunc {
	value := fmt.Sprintf("public, max-age=%d", int(d/time.Second))
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
