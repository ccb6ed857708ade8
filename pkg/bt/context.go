package bt

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory 节点在某个 Context 中的执行进度
type Memory struct {
	Status    Status    // 最近一次结果
	Running   bool      // 最近一次是否返回 RUNNING
	Counter   int       // 计数器（重复次数、叶子节点 tick 数等）
	Started   bool      // 计时是否已开始
	StartedAt time.Time // 计时开始时间
	values    map[string]any
}

// Set 保存自定义进度数据
func (m *Memory) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[key] = value
}

// Get 读取自定义进度数据
func (m *Memory) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Context 单个 Agent 的执行上下文
//
// 每个 Agent 持有一个 Context，同一时刻只能被一个 goroutine 执行。
// 黑板数据在 tick 之间保留，节点进度由 Initialize/Cleanup 重置。
type Context struct {
	*Blackboard

	agent     Agent
	env       *EnvironmentInfo
	clock     clockwork.Clock
	rng       *rand.Rand
	startTime time.Time
	delta     time.Duration

	nodes            map[*BaseNode]*Memory
	trees            map[*Tree]Status
	local            *BaseNode
	cleanupAbandoned bool

	executionCount atomic.Uint64
	currentNode    atomic.Value
}

// ContextOption 上下文选项
type ContextOption func(*Context)

// WithClock 设置时钟，测试中可使用 clockwork.NewFakeClock
func WithClock(c clockwork.Clock) ContextOption {
	return func(ctx *Context) {
		ctx.clock = c
	}
}

// WithRand 设置随机数源
func WithRand(r *rand.Rand) ContextOption {
	return func(ctx *Context) {
		ctx.rng = r
	}
}

// WithSeed 使用固定种子的随机数源
func WithSeed(seed uint64) ContextOption {
	return func(ctx *Context) {
		ctx.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithAgent 设置所属 Agent
func WithAgent(a Agent) ContextOption {
	return func(ctx *Context) {
		ctx.agent = a
	}
}

// WithBlackboard 使用已有黑板
func WithBlackboard(bb *Blackboard) ContextOption {
	return func(ctx *Context) {
		ctx.Blackboard = bb
	}
}

// NewContext 创建上下文
func NewContext(opts ...ContextOption) *Context {
	ctx := &Context{
		Blackboard: NewBlackboard(),
		clock:      clockwork.NewRealClock(),
		nodes:      make(map[*BaseNode]*Memory),
		trees:      make(map[*Tree]Status),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.startTime = ctx.clock.Now()
	ctx.currentNode.Store("")
	return ctx
}

// Agent 返回所属 Agent，可能为 nil
func (c *Context) Agent() Agent {
	return c.agent
}

// SetAgent 设置所属 Agent
func (c *Context) SetAgent(a Agent) {
	c.agent = a
}

// Clock 返回时钟
func (c *Context) Clock() clockwork.Clock {
	return c.clock
}

// Now 返回当前时间
func (c *Context) Now() time.Time {
	return c.clock.Now()
}

// StartTime 当前执行段的开始时间
func (c *Context) StartTime() time.Time {
	return c.startTime
}

// SetStartTime 设置执行段开始时间
func (c *Context) SetStartTime(t time.Time) {
	c.startTime = t
}

// DeltaTime 本次更新的帧间隔
func (c *Context) DeltaTime() time.Duration {
	return c.delta
}

// SetDeltaTime 设置帧间隔
func (c *Context) SetDeltaTime(d time.Duration) {
	c.delta = d
}

// EnvironmentInfo 返回环境快照，可能为 nil
func (c *Context) EnvironmentInfo() *EnvironmentInfo {
	return c.env
}

// SetEnvironmentInfo 设置环境快照
func (c *Context) SetEnvironmentInfo(env *EnvironmentInfo) {
	c.env = env
}

// IntN 返回 [0, n) 的随机整数
func (c *Context) IntN(n int) int {
	if c.rng != nil {
		return c.rng.IntN(n)
	}
	return rand.IntN(n)
}

// ExecutionCount 树被执行的次数
func (c *Context) ExecutionCount() uint64 {
	return c.executionCount.Load()
}

// ResetExecutionCount 重置执行次数
func (c *Context) ResetExecutionCount() {
	c.executionCount.Store(0)
}

// CurrentRunningNode 最近一个返回 RUNNING 的叶子节点名称
func (c *Context) CurrentRunningNode() string {
	return c.currentNode.Load().(string)
}

// MemoryOf 返回节点在本上下文中的进度
func (c *Context) MemoryOf(n Node) *Memory {
	return c.memory(n.base())
}

// Local 返回正在执行的叶子节点的进度，不在叶子节点中调用时返回 nil
func (c *Context) Local() *Memory {
	if c.local == nil {
		return nil
	}
	return c.memory(c.local)
}

// TreeStatus 返回树在本上下文中最近一次的结果
func (c *Context) TreeStatus(t *Tree) Status {
	return c.trees[t]
}

func (c *Context) memory(b *BaseNode) *Memory {
	mem, ok := c.nodes[b]
	if !ok {
		mem = &Memory{}
		c.nodes[b] = mem
	}
	return mem
}

func (c *Context) peek(b *BaseNode) (*Memory, bool) {
	mem, ok := c.nodes[b]
	return mem, ok
}

func (c *Context) resetMemory(b *BaseNode) {
	delete(c.nodes, b)
}

func (c *Context) wasRunning(n Node) bool {
	mem, ok := c.peek(n.base())
	return ok && mem.Running
}

// abandon 对上一次处于 RUNNING 但本次未被访问的子节点调用 Cleanup
func (c *Context) abandon(children []Node, keep int) {
	if !c.cleanupAbandoned {
		return
	}
	for i, child := range children {
		if i != keep && c.wasRunning(child) {
			child.Cleanup(c)
		}
	}
}
