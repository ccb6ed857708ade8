package bt

import "sync/atomic"

// Status 节点执行状态，零值为 StatusFailure
type Status int32

const (
	StatusFailure Status = iota // 失败
	StatusSuccess               // 成功
	StatusRunning               // 运行中
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusRunning:
		return "RUNNING"
	default:
		return "INVALID"
	}
}

// NodeType 节点类型标签，仅用于调试和统计
type NodeType int

const (
	NodeTypeAction NodeType = iota
	NodeTypeCondition
	NodeTypeSequence
	NodeTypeSelector
	NodeTypeParallel
	NodeTypeRandom
	NodeTypeRepeat
	NodeTypeInvert
	NodeTypeDelay
	NodeTypeTimeout
	NodeTypeUntilSuccess
	NodeTypeUntilFailure
)

var nodeTypeNames = [...]string{
	NodeTypeAction:       "ACTION",
	NodeTypeCondition:    "CONDITION",
	NodeTypeSequence:     "SEQUENCE",
	NodeTypeSelector:     "SELECTOR",
	NodeTypeParallel:     "PARALLEL",
	NodeTypeRandom:       "RANDOM",
	NodeTypeRepeat:       "REPEAT",
	NodeTypeInvert:       "INVERT",
	NodeTypeDelay:        "DELAY",
	NodeTypeTimeout:      "TIMEOUT",
	NodeTypeUntilSuccess: "UNTIL_SUCCESS",
	NodeTypeUntilFailure: "UNTIL_FAILURE",
}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return "UNKNOWN"
	}
	return nodeTypeNames[t]
}

// Node 行为树节点接口
//
// 节点本身只保存结构（名称、类型、子节点），每个 Agent 的执行进度
// 保存在 Context 的 Memory 中，因此同一棵树可以被多个 Agent 共享。
// 自定义节点需要嵌入 BaseNode。
type Node interface {
	// Name 返回节点名称，不要求唯一
	Name() string

	// Type 返回节点类型标签
	Type() NodeType

	// Children 返回有序子节点
	Children() []Node

	// LastStatus 返回最近一次执行结果
	LastStatus() Status

	// Execute 执行节点
	Execute(ctx *Context) Status

	// Initialize 重置节点及其所有子孙节点在 ctx 中的进度
	Initialize(ctx *Context)

	// Cleanup 取消节点，默认行为与 Initialize 相同
	Cleanup(ctx *Context)

	base() *BaseNode
}

// BaseNode 基础节点
type BaseNode struct {
	name       string
	nodeType   NodeType
	children   []Node
	lastStatus atomic.Int32
}

// Init 初始化嵌入的基础节点，供包外自定义节点使用
func (b *BaseNode) Init(name string, nodeType NodeType, children ...Node) {
	b.name = name
	b.nodeType = nodeType
	b.children = appendNonNil(nil, children...)
}

func (b *BaseNode) Name() string {
	return b.name
}

func (b *BaseNode) Type() NodeType {
	return b.nodeType
}

func (b *BaseNode) Children() []Node {
	return b.children
}

// AddChild 追加子节点，nil 被忽略
func (b *BaseNode) AddChild(child Node) {
	b.children = appendNonNil(b.children, child)
}

func (b *BaseNode) LastStatus() Status {
	return Status(b.lastStatus.Load())
}

// IsRunning 最近一次执行是否返回 RUNNING
func (b *BaseNode) IsRunning() bool {
	return b.LastStatus() == StatusRunning
}

func (b *BaseNode) Initialize(ctx *Context) {
	ctx.resetMemory(b)
	for _, child := range b.children {
		child.Initialize(ctx)
	}
}

func (b *BaseNode) Cleanup(ctx *Context) {
	ctx.resetMemory(b)
	for _, child := range b.children {
		child.Cleanup(ctx)
	}
}

// Record 记录执行结果并原样返回，自定义节点在 Execute 返回前调用
func (b *BaseNode) Record(ctx *Context, status Status) Status {
	b.lastStatus.Store(int32(status))
	mem := ctx.memory(b)
	mem.Status = status
	mem.Running = status == StatusRunning
	return status
}

func (b *BaseNode) base() *BaseNode {
	return b
}

func (b *BaseNode) child() Node {
	if len(b.children) == 0 {
		return nil
	}
	return b.children[0]
}

func appendNonNil(dst []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n != nil {
			dst = append(dst, n)
		}
	}
	return dst
}

// Walk 深度优先遍历节点，fn 返回 false 时不再进入该节点的子节点
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children() {
		walk(child, depth+1, fn)
	}
}
