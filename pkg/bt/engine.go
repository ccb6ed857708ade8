package bt

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/panjf2000/ants/v2"
)

// Engine 行为树引擎：树注册表 + Agent 逐帧更新
type Engine struct {
	cfg      *Config
	logger   logger.Logger
	observer Observer
	clock    clockwork.Clock
	pool     *ants.Pool
	preTick  []func(delta time.Duration)

	treesMu sync.Mutex
	trees   map[string]*Tree

	agentsMu sync.Mutex
	agents   []Executor

	frames atomic.Uint64
	closed atomic.Bool
}

// Option 引擎选项
type Option func(*Engine)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver 设置观察者
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithEngineClock 设置 Run 循环使用的时钟
func WithEngineClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPreTick 注册每帧更新 Agent 之前执行的回调，例如刷新环境信息
func WithPreTick(fn func(delta time.Duration)) Option {
	return func(e *Engine) {
		e.preTick = append(e.preTick, fn)
	}
}

// NewEngine 创建引擎
func NewEngine(cfg *Config, opts ...Option) (*Engine, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      merged,
		logger:   logger.NewNoop(),
		observer: nopObserver{},
		clock:    clockwork.NewRealClock(),
		trees:    make(map[string]*Tree),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("bt.engine")

	if merged.Workers > 0 {
		pool, err := ants.NewPool(merged.Workers, ants.WithPanicHandler(func(r any) {
			e.logger.Error("agent worker panic", "panic", fmt.Sprint(r))
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to create worker pool: %w", err)
		}
		e.pool = pool
	}

	return e, nil
}

// Config 返回生效的配置
func (e *Engine) Config() *Config {
	return e.cfg
}

// RegisterTree 注册行为树，同名覆盖
func (e *Engine) RegisterTree(name string, tree *Tree) {
	e.treesMu.Lock()
	defer e.treesMu.Unlock()

	if _, exists := e.trees[name]; exists {
		e.logger.Warn("behavior tree replaced", "tree", name)
	}
	e.trees[name] = tree
	e.logger.Debug("behavior tree registered", "tree", name)
}

// UnregisterTree 注销行为树
func (e *Engine) UnregisterTree(name string) {
	e.treesMu.Lock()
	defer e.treesMu.Unlock()

	delete(e.trees, name)
	e.logger.Debug("behavior tree unregistered", "tree", name)
}

// GetTree 获取行为树
func (e *Engine) GetTree(name string) (*Tree, bool) {
	e.treesMu.Lock()
	defer e.treesMu.Unlock()

	tree, ok := e.trees[name]
	return tree, ok
}

// TreeNames 返回已注册的树名称（有序）
func (e *Engine) TreeNames() []string {
	e.treesMu.Lock()
	names := make([]string, 0, len(e.trees))
	for name := range e.trees {
		names = append(names, name)
	}
	e.treesMu.Unlock()

	slices.Sort(names)
	return names
}

// TreeCount 已注册的树数量
func (e *Engine) TreeCount() int {
	e.treesMu.Lock()
	defer e.treesMu.Unlock()
	return len(e.trees)
}

// ExecuteTree 在 ctx 上执行指定名称的树，树不存在时返回 FAILURE
//
// 执行过程不持有注册表锁。
func (e *Engine) ExecuteTree(name string, ctx *Context) Status {
	tree, ok := e.GetTree(name)
	if !ok {
		e.logger.Debug("behavior tree not found", "tree", name)
		return StatusFailure
	}

	start := e.clock.Now()
	status := tree.Execute(ctx)
	e.observer.OnTreeExecuted(name, status, e.clock.Since(start))
	return status
}

// RegisterAgent 注册 Agent，重复注册被忽略
func (e *Engine) RegisterAgent(a Executor) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()

	if slices.Contains(e.agents, a) {
		return
	}
	e.agents = append(e.agents, a)
	e.logger.Debug("agent registered", "agent", a.Name())
}

// UnregisterAgent 注销 Agent
func (e *Engine) UnregisterAgent(a Executor) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()

	if i := slices.Index(e.agents, a); i >= 0 {
		e.agents = slices.Delete(e.agents, i, i+1)
		e.logger.Debug("agent unregistered", "agent", a.Name())
	}
}

// AgentCount 已注册的 Agent 数量
func (e *Engine) AgentCount() int {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()
	return len(e.agents)
}

// Agents 返回 Agent 快照
func (e *Engine) Agents() []Executor {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()
	return slices.Clone(e.agents)
}

// Frames 已执行的帧数
func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

// Update 更新所有激活的 Agent 一次，全部完成后返回
//
// 每个 Agent 在一帧内只由一个 worker 执行。
func (e *Engine) Update(delta time.Duration) {
	for _, fn := range e.preTick {
		fn(delta)
	}

	agents := e.Agents()
	e.frames.Add(1)

	if e.pool == nil {
		for _, a := range agents {
			if a.IsActive() {
				e.updateAgent(a, delta)
			}
		}
		return
	}

	var wg sync.WaitGroup
	for _, a := range agents {
		if !a.IsActive() {
			continue
		}

		agent := a
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			e.updateAgent(agent, delta)
		})
		if err != nil {
			wg.Done()
			e.logger.Warn("submit agent update failed, updating inline",
				"agent", agent.Name(),
				"error", err,
			)
			e.updateAgent(agent, delta)
		}
	}
	wg.Wait()
}

func (e *Engine) updateAgent(a Executor, delta time.Duration) {
	tree := a.BehaviorTree()
	if tree == nil {
		return
	}

	start := e.clock.Now()
	status := a.Update(delta)
	e.observer.OnTreeExecuted(tree.Name(), status, e.clock.Since(start))
}

// Run 按 TickInterval 循环调用 Update，直到 ctx 结束
func (e *Engine) Run(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	ticker := e.clock.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info("behavior tree engine started",
		"tick_interval", e.cfg.TickInterval.String(),
		"workers", e.cfg.Workers,
	)

	last := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("behavior tree engine stopped", "frames", e.Frames())
			return nil

		case now := <-ticker.Chan():
			delta := now.Sub(last)
			last = now
			e.Update(delta)
		}
	}
}

// Close 释放 worker 池
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.pool != nil {
		e.pool.Release()
	}
	return nil
}
