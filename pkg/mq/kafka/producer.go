package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Writer 底层写入接口，*kafka.Writer 实现了它
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka 生产者
type Producer struct {
	config      *Config
	writer      Writer
	logger      logger.Logger
	middlewares []Middleware

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	lastMu    sync.Mutex
	last      time.Time

	closed atomic.Bool
}

// Option 生产者选项
type Option func(*Producer)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWriter 替换底层写入器
func WithWriter(w Writer) Option {
	return func(p *Producer) { p.writer = w }
}

// WithMiddleware 添加中间件，先添加的在外层
func WithMiddleware(mw ...Middleware) Option {
	return func(p *Producer) { p.middlewares = append(p.middlewares, mw...) }
}

// NewProducer 创建生产者
func NewProducer(cfg *Config, opts ...Option) (*Producer, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	p := &Producer{
		config: newCfg,
		logger: logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("kafka")

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:                   kafka.TCP(newCfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              newCfg.BatchSize,
			BatchTimeout:           newCfg.BatchTimeout,
			MaxAttempts:            newCfg.MaxRetries + 1,
			WriteTimeout:           newCfg.WriteTimeout,
			ReadTimeout:            newCfg.ReadTimeout,
			RequiredAcks:           kafka.RequiredAcks(newCfg.RequiredAcks),
			Async:                  newCfg.Async,
			Compression:            parseCompression(newCfg.Compression),
			AllowAutoTopicCreation: true,
			Completion:             p.onCompletion,
		}
	}
	return p, nil
}

// Publish 发布单条消息
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		msg.Topic = p.config.Topic
	}

	p.produced.Add(1)

	publish := PublishFunc(p.write)
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw, next := p.middlewares[i], publish
		publish = func(ctx context.Context, msg *Message) error {
			return mw(ctx, msg, next)
		}
	}

	err := publish(ctx, msg)
	// 异步模式的结果由 Completion 回调统计
	if !p.config.Async || err != nil {
		p.record(1, err)
	}
	return err
}

// PublishJSON 发布 JSON 消息
func (p *Producer) PublishJSON(ctx context.Context, key string, value []byte, headers map[string]string) error {
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	h["content-type"] = "application/json"

	return p.Publish(ctx, &Message{
		Key:     []byte(key),
		Value:   value,
		Headers: h,
	})
}

func (p *Producer) write(ctx context.Context, msg *Message) error {
	km := kafka.Message{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  msg.Timestamp,
	}
	if len(msg.Headers) > 0 {
		km.Headers = make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return p.writer.WriteMessages(ctx, km)
}

func (p *Producer) onCompletion(msgs []kafka.Message, err error) {
	if p.config.Async {
		p.record(len(msgs), err)
	}
}

func (p *Producer) record(n int, err error) {
	if err != nil {
		p.failed.Add(int64(n))
		return
	}
	p.succeeded.Add(int64(n))
	p.lastMu.Lock()
	p.last = time.Now()
	p.lastMu.Unlock()
}

// Topic 默认主题
func (p *Producer) Topic() string {
	return p.config.Topic
}

// Stats 返回统计信息
func (p *Producer) Stats() ProducerStats {
	p.lastMu.Lock()
	last := p.last
	p.lastMu.Unlock()
	return ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
		LastMessageTime:   last,
	}
}

// Close 关闭生产者，可重复调用
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("producer closing", "topic", p.config.Topic)
	return p.writer.Close()
}

// IsClosed 是否已关闭
func (p *Producer) IsClosed() bool {
	return p.closed.Load()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
