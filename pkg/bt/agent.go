package bt

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Agent 行为树的执行主体
type Agent interface {
	Name() string
	BehaviorTree() *Tree
	SetBehaviorTree(t *Tree)
	IsActive() bool
	SetActive(active bool)
}

// Executor 可被引擎逐帧更新的 Agent
type Executor interface {
	Agent

	// Context 返回 Agent 独占的执行上下文
	Context() *Context

	// Update 执行一帧，未激活或没有行为树时返回 FAILURE
	Update(delta time.Duration) Status
}

var _ Executor = (*AI)(nil)

// AI 默认的 Executor 实现
type AI struct {
	id       string
	name     string
	tree     atomic.Pointer[Tree]
	ctx      *Context
	active   atomic.Bool
	logger   logger.Logger
	observer Observer

	lastStatus atomic.Int32
	lastUpdate atomic.Int64
}

// AIOption AI 选项
type AIOption func(*AI)

// WithAILogger 设置日志
func WithAILogger(l logger.Logger) AIOption {
	return func(a *AI) {
		a.logger = l
	}
}

// WithAIObserver 设置观察者
func WithAIObserver(o Observer) AIOption {
	return func(a *AI) {
		a.observer = o
	}
}

// WithAIContext 使用指定的上下文选项创建 Context
func WithAIContext(opts ...ContextOption) AIOption {
	return func(a *AI) {
		a.ctx = NewContext(opts...)
	}
}

// NewAI 创建 AI，默认处于激活状态
func NewAI(name string, tree *Tree, opts ...AIOption) *AI {
	a := &AI{
		id:       uuid.NewString(),
		name:     name,
		logger:   logger.NewNoop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.ctx == nil {
		a.ctx = NewContext()
	}
	a.ctx.SetAgent(a)
	a.logger = a.logger.Named("bt.ai").WithFields("agent", name, "id", a.id)
	a.tree.Store(tree)
	a.active.Store(true)
	return a
}

// ID 返回唯一标识
func (a *AI) ID() string {
	return a.id
}

func (a *AI) Name() string {
	return a.name
}

func (a *AI) BehaviorTree() *Tree {
	return a.tree.Load()
}

// SetBehaviorTree 切换行为树并清除其在本 Context 中的进度，下一帧从头开始执行
//
// 与 Update 一样只能在驱动该 Agent 的 goroutine 中调用。
func (a *AI) SetBehaviorTree(t *Tree) {
	if t != nil {
		t.Reset(a.ctx)
	}
	a.tree.Store(t)
}

func (a *AI) IsActive() bool {
	return a.active.Load()
}

func (a *AI) SetActive(active bool) {
	a.active.Store(active)
}

func (a *AI) Context() *Context {
	return a.ctx
}

// LastStatus 最近一帧的结果
func (a *AI) LastStatus() Status {
	return Status(a.lastStatus.Load())
}

// LastUpdate 最近一帧的时间，从未更新时为零值
func (a *AI) LastUpdate() time.Time {
	ns := a.lastUpdate.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Update 执行一帧，叶子节点的 panic 在此处恢复并记为 FAILURE，树的进度随之清除
func (a *AI) Update(delta time.Duration) (status Status) {
	tree := a.tree.Load()
	if !a.active.Load() || tree == nil {
		return StatusFailure
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("behavior tree panic recovered",
				"tree", tree.Name(),
				"panic", fmt.Sprint(r),
			)
			a.observer.OnAgentPanic(a.name, r)
			tree.Reset(a.ctx)
			status = StatusFailure
		}
		a.lastStatus.Store(int32(status))
	}()

	now := a.ctx.Now()
	a.ctx.SetStartTime(now)
	a.ctx.SetDeltaTime(delta)
	a.lastUpdate.Store(now.UnixNano())

	return tree.Execute(a.ctx)
}
