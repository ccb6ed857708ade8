package kafka

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Kafka 生产者配置
type Config struct {
	// Brokers broker 地址列表
	Brokers []string `mapstructure:"brokers"`

	// Topic 默认主题，消息未指定 Topic 时使用
	Topic string `mapstructure:"topic"`

	// Async 是否异步发送，异步模式下 Publish 不等待 broker 确认
	Async bool `mapstructure:"async"`

	// BatchSize 批量大小
	BatchSize int `mapstructure:"batch_size" validate:"gte=0"`

	// BatchTimeout 批量最长等待时间
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	// MaxRetries 最大重试次数
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RequiredAcks 0: 不等待, 1: leader, -1: 所有副本
	RequiredAcks int `mapstructure:"required_acks" validate:"oneof=-1 0 1"`

	// Compression none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`

	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
}

// DefaultConfig 默认配置，不包含 broker 地址
func DefaultConfig() *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 100 * time.Millisecond,
		MaxRetries:   3,
		RequiredAcks: -1,
		Compression:  "snappy",
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

// Enabled 是否配置了 broker
func (c *Config) Enabled() bool {
	return c != nil && len(c.Brokers) > 0
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Topic == "" {
		return errors.Wrap(ErrEmptyTopic, "default topic")
	}
	return nil
}
