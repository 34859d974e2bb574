package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// ClientConfig 上游客户端配置
type ClientConfig struct {
	BaseURL string

	// APIKey 放在 APIKeyHeader 指定的请求头中（默认 Authorization）
	APIKey       string
	APIKeyHeader string

	// Timeout 单次请求超时（默认 60s），超时只影响本轮抓取
	Timeout time.Duration

	// RateLimit 每秒请求数（默认 2），RateBurst 突发上限（默认 4）
	RateLimit float64
	RateBurst int

	UserAgent string

	// Transport 测试时注入
	Transport http.RoundTripper
}

// DefaultClientConfig 默认配置
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		APIKeyHeader: "Authorization",
		Timeout:      60 * time.Second,
		RateLimit:    2,
		RateBurst:    4,
		UserAgent:    "Hyperschedule Crawler",
	}
}

// Client 限速的上游 HTTP 客户端，不做重试，失败由下一轮轮询兜底
type Client struct {
	config      *ClientConfig
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient 创建客户端，零值字段取默认值
func NewClient(config *ClientConfig) *Client {
	def := DefaultClientConfig()
	if config == nil {
		config = def
	}
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = def.APIKeyHeader
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = def.RateLimit
	}
	if config.RateBurst == 0 {
		config.RateBurst = def.RateBurst
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// HTTPError 上游返回非 2xx
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: HTTP %d: %s", apperrors.ErrUpstream.Error(), e.StatusCode, body)
}

func (e *HTTPError) Unwrap() error { return apperrors.ErrUpstream }

// Get 发送 GET 请求并返回响应正文
func (c *Client) Get(ctx context.Context, path string, query url.Values) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.config.BaseURL
	if path != "" {
		fullURL = strings.TrimSuffix(fullURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.APIKey != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

// Fetch 抓取一个数据源，CRLF 统一转换为 LF
func (c *Client) Fetch(ctx context.Context, src Source, term model.TermIdentifier) (string, error) {
	body, err := c.Get(ctx, src.Path, src.Query(term))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(body, "\r\n", "\n"), nil
}
