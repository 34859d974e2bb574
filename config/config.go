package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Log      LogConfig      `mapstructure:"log"`
}

// AppConfig 运行环境与当前学期
type AppConfig struct {
	Env string `mapstructure:"env"` // development | production
	// CurrentTerm 由维护者在教务处正式发布课表后手动更新，例如 SP2023
	CurrentTerm string `mapstructure:"current_term"`
}

// IsProduction 生产环境下链接阶段对非法 Section 只告警不中断
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// UpstreamConfig 教务系统数据接口配置
type UpstreamConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	APIKeyHeader string        `mapstructure:"api_key_header"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"` // 每秒请求数
	RateBurst    int           `mapstructure:"rate_burst"`
}

// SourcesConfig 数据源覆盖项
type SourcesConfig struct {
	// Intervals 按数据源名称覆盖轮询间隔，例如 course-section: 2m
	Intervals map[string]time.Duration `mapstructure:"intervals"`
	// CourseFormat 课程数据格式：dump（默认）| delimited
	CourseFormat string `mapstructure:"course_format"`
}

// DataConfig 本地原始数据缓存目录
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（可选，连接失败时降级运行）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// OpsConfig 运维 HTTP 端点配置
type OpsConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout、stderr 或文件路径
}

var termPattern = regexp.MustCompile(`^(FA|SP|SU)\d{4}$`)

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("app.env", "development")
	v.SetDefault("app.current_term", "SP2023")

	v.SetDefault("upstream.base_url", "http://localhost:8081/hmc")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.api_key_header", "Authorization")
	v.SetDefault("upstream.user_agent", "Hyperschedule Crawler")
	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("upstream.rate_limit", 2.0)
	v.SetDefault("upstream.rate_burst", 4)

	v.SetDefault("sources.course_format", "dump")

	v.SetDefault("data.dir", "./data")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "hyperschedule")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Los_Angeles")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("ops.port", 9090)
	v.SetDefault("ops.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("HYPERSCHEDULE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.App.Env != "development" && c.App.Env != "production" {
		return fmt.Errorf("配置校验失败: app.env 只能是 development 或 production")
	}
	if !termPattern.MatchString(c.App.CurrentTerm) {
		return fmt.Errorf("配置校验失败: app.current_term 格式错误 %q", c.App.CurrentTerm)
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("配置校验失败: upstream.base_url 不是合法 URL")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: upstream.timeout 必须大于 0")
	}
	for name, d := range c.Sources.Intervals {
		if d <= 0 {
			return fmt.Errorf("配置校验失败: sources.intervals.%s 必须大于 0", name)
		}
	}
	if c.Sources.CourseFormat != "dump" && c.Sources.CourseFormat != "delimited" {
		return fmt.Errorf("配置校验失败: sources.course_format 只能是 dump 或 delimited")
	}
	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return fmt.Errorf("配置校验失败: ops.port 必须在 1-65535 之间")
	}
	return nil
}
