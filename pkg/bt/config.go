package bt

import "time"

// Config 引擎配置
type Config struct {
	// TickInterval Run 循环的帧间隔
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// Workers 并发更新 Agent 的 worker 数量，0 表示在调用方 goroutine 中顺序更新
	Workers int `mapstructure:"workers"`

	// CleanupAbandoned 是否对被放弃的 RUNNING 分支调用 Cleanup
	CleanupAbandoned bool `mapstructure:"cleanup_abandoned"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		TickInterval: 100 * time.Millisecond,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// TreeOptions 返回按配置构建行为树时使用的选项
func (c *Config) TreeOptions() []TreeOption {
	var opts []TreeOption
	if c.CleanupAbandoned {
		opts = append(opts, WithCleanupAbandoned())
	}
	return opts
}
