package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	applogger "github.com/hyperschedule/hyperschedule-sub000/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/sections", CacheFor(time.Minute), func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.GET("/api/v1/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })
	return r
}

func do(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// RequestID
// ═══════════════════════════════════════════════════════════

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"沿用合法 ID", "gw-7f3a:01.edge_2", true},
		{"未传入", "", false},
		{"超长", strings.Repeat("a", requestIDMaxLen+1), false},
		{"含换行", "abc\nlevel=error", false},
		{"含空格", "abc def", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := map[string]string{}
			if tt.incoming != "" {
				h[requestIDHeader] = tt.incoming
			}
			got := do(r, "/health", h).Header().Get(requestIDHeader)
			if tt.keep && got != tt.incoming {
				t.Errorf("应沿用传入的 ID, 实际 %q", got)
			}
			if !tt.keep && (got == tt.incoming || len(got) != 36) {
				t.Errorf("应重新生成 UUID, 实际 %q", got)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// SecurityHeaders / CacheFor
// ═══════════════════════════════════════════════════════════

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeaders())

	w := do(r, "/health", nil)
	for k, v := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	} {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s: 期望 %q, 实际 %q", k, v, got)
		}
	}

	w = do(r, "/api/v1/sections", nil)
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("目录接口应允许缓存一分钟, 实际 %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("覆盖缓存头后仍应保留其他安全头")
	}
}

// ═══════════════════════════════════════════════════════════
// Logger
// ═══════════════════════════════════════════════════════════

func TestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newEngine(RequestID(), Logger(zap.New(core)))

	do(r, "/health", map[string]string{requestIDHeader: "rid-1"})
	do(r, "/api/v1/sections", nil)
	do(r, "/api/v1/boom", nil)

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("期望 3 条请求日志, 实际 %d", len(entries))
	}
	want := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("第 %d 条: 期望 %s, 实际 %s (%s)", i, want[i], e.Level, e.Message)
		}
		if e.LoggerName != applogger.ComponentOps {
			t.Errorf("日志组件名应为 %s, 实际 %q", applogger.ComponentOps, e.LoggerName)
		}
	}
	if rid := entries[0].ContextMap()["request_id"]; rid != "rid-1" {
		t.Errorf("日志应带请求 ID, 实际 %v", rid)
	}
	if route := entries[1].ContextMap()["route"]; route != "/api/v1/sections" {
		t.Errorf("日志应记录路由模板, 实际 %v", route)
	}
}

// ═══════════════════════════════════════════════════════════
// RateLimit
// ═══════════════════════════════════════════════════════════

func TestRateLimit_PerClientIP(t *testing.T) {
	r := newEngine(RateLimit(rate.Limit(0.001), 2))

	from := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = ip + ":40000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := from("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("突发容量内应放行, 第 %d 次得到 %d", i+1, code)
		}
	}
	if code := from("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("超出突发容量应限流, 实际 %d", code)
	}
	if code := from("10.0.0.2"); code != http.StatusOK {
		t.Errorf("其他客户端不受影响, 实际 %d", code)
	}
}
