package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-ai/app/monster/internal/manager"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/mq/kafka"
)

// Config 生命周期事件投递配置
type Config struct {
	// Buffer 待发送事件队列长度，满时丢弃新事件
	Buffer int `mapstructure:"buffer" validate:"gte=0"`
	// PublishTimeout 单条事件发送超时
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	// Kafka brokers 为空时不启用
	Kafka kafka.Config `mapstructure:"kafka"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Buffer:         1024,
		PublishTimeout: 5 * time.Second,
	}
}

// Producer 事件发送端，*kafka.Producer 实现了它
type Producer interface {
	PublishJSON(ctx context.Context, key string, value []byte, headers map[string]string) error
	Close() error
}

// Publisher 将怪物生命周期事件异步写入消息队列
type Publisher struct {
	producer Producer
	timeout  time.Duration
	logger   logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan manager.Event
	done   chan struct{}

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Stats 投递统计
type Stats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// New 创建 Publisher 并启动发送协程
func New(cfg *Config, p Producer, l logger.Logger) *Publisher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l == nil {
		l = logger.NewNoop()
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultConfig().Buffer
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}

	pub := &Publisher{
		producer: p,
		timeout:  timeout,
		logger:   l.Named("events"),
		queue:    make(chan manager.Event, buffer),
		done:     make(chan struct{}),
	}
	go pub.loop()
	return pub
}

// Hook 作为 manager.WithEventHook 的回调，不阻塞调用方
func (p *Publisher) Hook(ev manager.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- ev:
	default:
		if p.dropped.Add(1)%100 == 1 {
			p.logger.Warn("event queue full, dropping", "type", string(ev.Type), "monster", ev.Monster.ID)
		}
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		p.publish(ev)
	}
}

func (p *Publisher) publish(ev manager.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("marshal event failed", "type", string(ev.Type), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	headers := map[string]string{
		"event_type":   string(ev.Type),
		"monster_type": string(ev.Monster.Type),
	}
	if err := p.producer.PublishJSON(ctx, strconv.FormatUint(uint64(ev.Monster.ID), 10), body, headers); err != nil {
		p.failed.Add(1)
		p.logger.Error("publish event failed",
			"type", string(ev.Type),
			"monster", ev.Monster.ID,
			"error", err,
		)
		return
	}
	p.published.Add(1)
}

// Stats 返回投递统计
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// Close 发送完队列中剩余事件后关闭底层 Producer，可重复调用
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	s := p.Stats()
	p.logger.Info("event publisher closed",
		"published", s.Published,
		"failed", s.Failed,
		"dropped", s.Dropped,
	)
	return p.producer.Close()
}
