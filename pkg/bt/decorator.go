package bt

import "time"

// Invert 反转节点：交换子节点的成功与失败，RUNNING 原样返回
type Invert struct {
	BaseNode
}

// NewInvert 创建反转节点
func NewInvert(name string, child Node) *Invert {
	return &Invert{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeInvert, children: appendNonNil(nil, child)},
	}
}

func (i *Invert) Execute(ctx *Context) Status {
	child := i.child()
	if child == nil {
		return i.Record(ctx, StatusFailure)
	}

	switch status := child.Execute(ctx); status {
	case StatusSuccess:
		return i.Record(ctx, StatusFailure)
	case StatusFailure:
		return i.Record(ctx, StatusSuccess)
	default:
		return i.Record(ctx, status)
	}
}

// RepeatForever 无限重复
const RepeatForever = -1

// Repeat 重复节点：重复执行子节点直到成功次数达到 count
//
// count 为 RepeatForever 时每次 tick 只执行一轮，子节点成功后返回 RUNNING，
// 下一次 tick 继续。计数在 RUNNING 期间保留，由 Initialize 清零。
type Repeat struct {
	BaseNode
	count int
}

// NewRepeat 创建重复节点
func NewRepeat(name string, count int, child Node) *Repeat {
	return &Repeat{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeRepeat, children: appendNonNil(nil, child)},
		count:    count,
	}
}

// Count 返回目标次数
func (r *Repeat) Count() int {
	return r.count
}

// Completed 返回 ctx 中已成功的次数
func (r *Repeat) Completed(ctx *Context) int {
	return ctx.memory(&r.BaseNode).Counter
}

func (r *Repeat) Execute(ctx *Context) Status {
	child := r.child()
	if child == nil {
		return r.Record(ctx, StatusFailure)
	}

	mem := ctx.memory(&r.BaseNode)
	if r.count < 0 {
		status := child.Execute(ctx)
		if status != StatusSuccess {
			return r.Record(ctx, status)
		}
		mem.Counter++
		return r.Record(ctx, StatusRunning)
	}

	for mem.Counter < r.count {
		status := child.Execute(ctx)
		if status != StatusSuccess {
			return r.Record(ctx, status)
		}
		mem.Counter++
	}
	return r.Record(ctx, StatusSuccess)
}

// Delay 延迟节点：激活后等待 duration 再放行
//
// 没有子节点时到时返回 SUCCESS；有子节点时到时执行子节点，
// 子节点结束后重新进入等待。
type Delay struct {
	BaseNode
	duration time.Duration
}

// NewDelay 创建延迟节点，child 可以为 nil
func NewDelay(name string, duration time.Duration, child Node) *Delay {
	return &Delay{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeDelay, children: appendNonNil(nil, child)},
		duration: duration,
	}
}

// Duration 返回延迟时长
func (d *Delay) Duration() time.Duration {
	return d.duration
}

func (d *Delay) Execute(ctx *Context) Status {
	mem := ctx.memory(&d.BaseNode)
	if !mem.Started {
		mem.Started = true
		mem.StartedAt = ctx.Now()
		return d.Record(ctx, StatusRunning)
	}

	if ctx.Now().Sub(mem.StartedAt) < d.duration {
		return d.Record(ctx, StatusRunning)
	}

	child := d.child()
	if child == nil {
		mem.Started = false
		return d.Record(ctx, StatusSuccess)
	}

	status := child.Execute(ctx)
	if status != StatusRunning {
		mem.Started = false
	}
	return d.Record(ctx, status)
}

// Timeout 超时节点：子节点持续 RUNNING 超过 duration 则失败
//
// 计时从一次激活的第一次执行开始，子节点结束或超时后重新计时。
// 超时时对子节点调用 Cleanup。
type Timeout struct {
	BaseNode
	duration time.Duration
}

// NewTimeout 创建超时节点
func NewTimeout(name string, duration time.Duration, child Node) *Timeout {
	return &Timeout{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeTimeout, children: appendNonNil(nil, child)},
		duration: duration,
	}
}

// Duration 返回超时时长
func (t *Timeout) Duration() time.Duration {
	return t.duration
}

func (t *Timeout) Execute(ctx *Context) Status {
	child := t.child()
	if child == nil {
		return t.Record(ctx, StatusFailure)
	}

	mem := ctx.memory(&t.BaseNode)
	if !mem.Started {
		mem.Started = true
		mem.StartedAt = ctx.Now()
	}

	status := child.Execute(ctx)
	if status != StatusRunning {
		mem.Started = false
		return t.Record(ctx, status)
	}

	if ctx.Now().Sub(mem.StartedAt) >= t.duration {
		mem.Started = false
		child.Cleanup(ctx)
		return t.Record(ctx, StatusFailure)
	}
	return t.Record(ctx, StatusRunning)
}

// UntilSuccess 直到成功节点：子节点失败时返回 RUNNING，下一次 tick 重试
type UntilSuccess struct {
	BaseNode
}

// NewUntilSuccess 创建直到成功节点
func NewUntilSuccess(name string, child Node) *UntilSuccess {
	return &UntilSuccess{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeUntilSuccess, children: appendNonNil(nil, child)},
	}
}

func (u *UntilSuccess) Execute(ctx *Context) Status {
	child := u.child()
	if child == nil {
		return u.Record(ctx, StatusFailure)
	}

	status := child.Execute(ctx)
	if status == StatusSuccess {
		return u.Record(ctx, StatusSuccess)
	}
	if status == StatusFailure {
		child.Initialize(ctx)
	}
	return u.Record(ctx, StatusRunning)
}

// UntilFailure 直到失败节点：子节点失败时返回 SUCCESS，否则返回 RUNNING
type UntilFailure struct {
	BaseNode
}

// NewUntilFailure 创建直到失败节点
func NewUntilFailure(name string, child Node) *UntilFailure {
	return &UntilFailure{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeUntilFailure, children: appendNonNil(nil, child)},
	}
}

func (u *UntilFailure) Execute(ctx *Context) Status {
	child := u.child()
	if child == nil {
		return u.Record(ctx, StatusFailure)
	}

	status := child.Execute(ctx)
	if status == StatusFailure {
		return u.Record(ctx, StatusSuccess)
	}
	if status == StatusSuccess {
		child.Initialize(ctx)
	}
	return u.Record(ctx, StatusRunning)
}
