package manager

import (
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/trees"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/idgen"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Option 管理器选项
type Option func(*Manager)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver 设置行为树执行观察者
func WithObserver(o bt.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithClock 设置时钟，同时用于引擎与所有怪物的上下文
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithEngineConfig 设置引擎配置
func WithEngineConfig(cfg *bt.Config) Option {
	return func(m *Manager) { m.engineCfg = cfg }
}

// WithTiming 设置行为树时间参数
func WithTiming(t *trees.Timing) Option {
	return func(m *Manager) { m.timing = t }
}

// WithSpawnIDGenerator 设置每次生成（含复活）使用的 ID 生成器
func WithSpawnIDGenerator(g idgen.Generator) Option {
	return func(m *Manager) { m.spawnIDs = g }
}

// WithReportHook 注册统计上报回调，由定时报告任务调用
func WithReportHook(fn func(Stats)) Option {
	return func(m *Manager) { m.reportHooks = append(m.reportHooks, fn) }
}

// WithEventHook 注册生命周期事件回调，回调在触发事件的协程中同步执行
func WithEventHook(fn func(Event)) Option {
	return func(m *Manager) { m.eventHooks = append(m.eventHooks, fn) }
}
