package logger

import (
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hyperschedule/hyperschedule-sub000/config"
)

// ServiceName 写入每条日志的 service 字段
const ServiceName = "hyperschedule-ingest"

// 各组件的日志名，经 Named 写入 logger 字段，便于按来源过滤
const (
	ComponentFetcher  = "fetcher"
	ComponentLinker   = "linker"
	ComponentLocation = "location"
	ComponentService  = "service"
	ComponentOps      = "ops"
	ComponentRedis    = "redis"
	ComponentDB       = "gorm"
	ComponentMigrate  = "migrate"
)

// NewLogger 根据配置初始化 Zap 日志实例，term 作为固定字段写入每条日志
func NewLogger(cfg *config.LogConfig, term string) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "time"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// 一轮链接可能产生上百条同文案的丢弃告警，需逐条保留
		zapCfg.Sampling = nil
	default:
		return nil, fmt.Errorf("无效的日志格式 %q", cfg.Format)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}
	zapCfg.InitialFields = map[string]interface{}{
		"service": ServiceName,
		"term":    term,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger, nil
}

// Sync 刷新缓冲；输出为终端时 fsync 会返回 EINVAL 或 ENOTTY，忽略
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
