package sentry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
)

// Client Sentry 客户端，使用独立的 Hub，不修改全局状态
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	eventsTotal    atomic.Uint64
	eventsCaptured atomic.Uint64
}

// Option 客户端选项
type Option func(*sentry.ClientOptions)

// WithTransport 替换事件发送方式
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) { o.Transport = t }
}

// New 创建 Sentry 客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge sentry config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	options := newCfg.toClientOptions()
	for _, opt := range opts {
		opt(&options)
	}
	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range newCfg.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: newCfg}, nil
}

func (c *Client) record(id *sentry.EventID) *sentry.EventID {
	c.eventsTotal.Add(1)
	if id != nil && *id != "" {
		c.eventsCaptured.Add(1)
	}
	return id
}

// CaptureException 捕获错误
func (c *Client) CaptureException(err error, tags map[string]string) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}
	var id *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		id = c.hub.CaptureException(err)
	})
	return c.record(id)
}

// CaptureMessage 捕获消息
func (c *Client) CaptureMessage(message string, level Level, tags map[string]string) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}
	var id *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level.toSentryLevel())
		scope.SetTags(tags)
		id = c.hub.CaptureMessage(message)
	})
	return c.record(id)
}

// CapturePanic 上报已恢复的 panic，不重新抛出
func (c *Client) CapturePanic(recovered any, tags map[string]string) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}
	var id *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetTags(tags)
		id = c.hub.Recover(recovered)
	})
	return c.record(id)
}

// Flush 等待所有事件上报完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 刷新剩余事件并关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

// Stats 获取统计信息
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.eventsTotal.Load(),
		EventsCaptured: c.eventsCaptured.Load(),
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
