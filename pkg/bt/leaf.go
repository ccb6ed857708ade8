package bt

// ActionFunc 动作回调，不得阻塞
type ActionFunc func(ctx *Context) Status

// ConditionFunc 条件回调，不得阻塞
type ConditionFunc func(ctx *Context) bool

// Action 动作节点
type Action struct {
	BaseNode
	fn ActionFunc
}

// NewAction 创建动作节点，fn 为 nil 时执行结果为 FAILURE
func NewAction(name string, fn ActionFunc) *Action {
	return &Action{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeAction},
		fn:       fn,
	}
}

// SetAction 替换回调
func (a *Action) SetAction(fn ActionFunc) {
	a.fn = fn
}

func (a *Action) Execute(ctx *Context) Status {
	if a.fn == nil {
		return a.Record(ctx, StatusFailure)
	}
	return a.Record(ctx, runLeaf(ctx, &a.BaseNode, a.fn))
}

// Condition 条件节点
type Condition struct {
	BaseNode
	fn ConditionFunc
}

// NewCondition 创建条件节点，fn 为 nil 时执行结果为 FAILURE
func NewCondition(name string, fn ConditionFunc) *Condition {
	return &Condition{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeCondition},
		fn:       fn,
	}
}

// SetCondition 替换回调
func (c *Condition) SetCondition(fn ConditionFunc) {
	c.fn = fn
}

func (c *Condition) Execute(ctx *Context) Status {
	if c.fn == nil {
		return c.Record(ctx, StatusFailure)
	}
	status := runLeaf(ctx, &c.BaseNode, func(ctx *Context) Status {
		if c.fn(ctx) {
			return StatusSuccess
		}
		return StatusFailure
	})
	return c.Record(ctx, status)
}

func runLeaf(ctx *Context, b *BaseNode, fn ActionFunc) Status {
	prev := ctx.local
	ctx.local = b
	defer func() { ctx.local = prev }()

	status := fn(ctx)
	if status == StatusRunning {
		ctx.currentNode.Store(b.name)
	}
	return status
}

// RunFor 返回一个动作回调：前 ticks-1 次返回 RUNNING，第 ticks 次返回 SUCCESS 并清零计数
func RunFor(ticks int) ActionFunc {
	return func(ctx *Context) Status {
		mem := ctx.Local()
		mem.Counter++
		if mem.Counter >= ticks {
			mem.Counter = 0
			return StatusSuccess
		}
		return StatusRunning
	}
}
