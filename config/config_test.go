package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: development\n"))
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.App.CurrentTerm != "SP2023" {
		t.Errorf("默认学期错误: %s", cfg.App.CurrentTerm)
	}
	if cfg.Upstream.Timeout != 60*time.Second {
		t.Errorf("默认超时错误: %v", cfg.Upstream.Timeout)
	}
	if cfg.Sources.CourseFormat != "dump" {
		t.Errorf("默认课程格式错误: %s", cfg.Sources.CourseFormat)
	}
	if cfg.App.IsProduction() {
		t.Error("development 不应视为生产环境")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
  current_term: FA2023
sources:
  intervals:
    course-section: 2m
upstream:
  timeout: 30s
`)
	t.Setenv("HYPERSCHEDULE_UPSTREAM_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if !cfg.App.IsProduction() || cfg.App.CurrentTerm != "FA2023" {
		t.Errorf("配置文件未生效: %+v", cfg.App)
	}
	if cfg.Sources.Intervals["course-section"] != 2*time.Minute {
		t.Errorf("间隔覆盖未生效: %v", cfg.Sources.Intervals)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("超时覆盖未生效: %v", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.APIKey != "secret" {
		t.Errorf("环境变量未生效: %q", cfg.Upstream.APIKey)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:      AppConfig{Env: "development", CurrentTerm: "SP2023"},
			Upstream: UpstreamConfig{BaseURL: "http://localhost:8081/hmc", Timeout: time.Second},
			Sources:  SourcesConfig{CourseFormat: "dump"},
			Ops:      OpsConfig{Port: 9090, Enabled: true},
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("合法配置校验失败: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"环境", func(c *Config) { c.App.Env = "staging" }},
		{"学期", func(c *Config) { c.App.CurrentTerm = "2023SP" }},
		{"地址", func(c *Config) { c.Upstream.BaseURL = "localhost" }},
		{"超时", func(c *Config) { c.Upstream.Timeout = 0 }},
		{"间隔", func(c *Config) { c.Sources.Intervals = map[string]time.Duration{"course": 0} }},
		{"格式", func(c *Config) { c.Sources.CourseFormat = "xml" }},
		{"端口", func(c *Config) { c.Ops.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}
