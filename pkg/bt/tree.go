package bt

import "sync/atomic"

// Tree 行为树
//
// Tree 只保存结构，可被多个 Agent 并发执行，每个 Agent 使用自己的 Context。
type Tree struct {
	name             string
	root             Node
	cleanupAbandoned bool
	lastStatus       atomic.Int32
}

// TreeOption 行为树选项
type TreeOption func(*Tree)

// WithCleanupAbandoned 对上一次 RUNNING 但本次未被访问的分支调用 Cleanup
func WithCleanupAbandoned() TreeOption {
	return func(t *Tree) {
		t.cleanupAbandoned = true
	}
}

// NewTree 创建行为树，root 可以为 nil
func NewTree(name string, root Node, opts ...TreeOption) *Tree {
	t := &Tree{
		name: name,
		root: root,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name 返回树名称
func (t *Tree) Name() string {
	return t.name
}

// Root 返回根节点
func (t *Tree) Root() Node {
	return t.root
}

// LastStatus 最近一次执行结果
func (t *Tree) LastStatus() Status {
	return Status(t.lastStatus.Load())
}

// IsRunning 最近一次执行是否返回 RUNNING
func (t *Tree) IsRunning() bool {
	return t.LastStatus() == StatusRunning
}

// Execute 执行一次行为树
//
// 若 ctx 中该树上一次的结果不是 RUNNING，先初始化整棵子树。
func (t *Tree) Execute(ctx *Context) Status {
	if t.root == nil {
		return StatusFailure
	}

	if ctx.trees[t] != StatusRunning {
		t.root.Initialize(ctx)
		ctx.currentNode.Store("")
	}

	prev := ctx.cleanupAbandoned
	ctx.cleanupAbandoned = t.cleanupAbandoned
	defer func() { ctx.cleanupAbandoned = prev }()

	ctx.executionCount.Add(1)
	status := t.root.Execute(ctx)

	ctx.trees[t] = status
	t.lastStatus.Store(int32(status))
	return status
}

// Reset 清除 ctx 中该树的全部进度
func (t *Tree) Reset(ctx *Context) {
	if t.root != nil {
		t.root.Initialize(ctx)
	}
	delete(ctx.trees, t)
}
