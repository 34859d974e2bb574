package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/config"
	"github.com/hyperschedule/hyperschedule-sub000/internal/fetcher"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

// Client Redis 客户端封装
// 用于目录更新通知与抓取状态上报；nil *Client 上的方法均为空操作，便于降级运行
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 目录更新通知 ──

const (
	SectionsUpdatedChannel = "hyperschedule:sections:updated"
	fetchStatusKey         = "hyperschedule:fetch:status"
)

// SectionsUpdated 目录更新消息体
type SectionsUpdated struct {
	Term      string    `json:"term"`
	Sections  int       `json:"sections"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublishSectionsUpdated 整学期目录入库后发布通知，订阅方据此刷新缓存
func (c *Client) PublishSectionsUpdated(ctx context.Context, term model.TermIdentifier, count int) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(SectionsUpdated{Term: term.String(), Sections: count, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, SectionsUpdatedChannel, payload).Err()
}

// ── 抓取状态 ──

// RecordFetch 将数据源状态写入哈希表，字段为数据源名称
func (c *Client) RecordFetch(ctx context.Context, status fetcher.SourceStatus) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.rdb.HSet(ctx, fetchStatusKey, status.Name, payload).Err()
}

// FetchStatuses 读取全部数据源的最近状态
func (c *Client) FetchStatuses(ctx context.Context) (map[string]fetcher.SourceStatus, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.rdb.HGetAll(ctx, fetchStatusKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]fetcher.SourceStatus, len(raw))
	for name, v := range raw {
		var st fetcher.SourceStatus
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			c.logger.Warn("抓取状态格式错误", zap.String("source", name), zap.Error(err))
			continue
		}
		out[name] = st
	}
	return out, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
