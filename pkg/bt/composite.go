package bt

// Sequence 顺序节点：每次从第一个子节点开始执行，全部成功才成功
type Sequence struct {
	BaseNode
}

// NewSequence 创建顺序节点
func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeSequence, children: appendNonNil(nil, children...)},
	}
}

func (s *Sequence) Execute(ctx *Context) Status {
	if len(s.children) == 0 {
		return s.Record(ctx, StatusFailure)
	}

	for i, child := range s.children {
		status := child.Execute(ctx)
		if status != StatusSuccess {
			ctx.abandon(s.children, i)
			return s.Record(ctx, status)
		}
	}
	return s.Record(ctx, StatusSuccess)
}

// Selector 选择节点：每次从第一个子节点开始执行，有一个成功就成功
type Selector struct {
	BaseNode
}

// NewSelector 创建选择节点
func NewSelector(name string, children ...Node) *Selector {
	return &Selector{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeSelector, children: appendNonNil(nil, children...)},
	}
}

func (s *Selector) Execute(ctx *Context) Status {
	if len(s.children) == 0 {
		return s.Record(ctx, StatusFailure)
	}

	for i, child := range s.children {
		status := child.Execute(ctx)
		if status != StatusFailure {
			ctx.abandon(s.children, i)
			return s.Record(ctx, status)
		}
	}
	return s.Record(ctx, StatusFailure)
}

// ParallelPolicy 并行节点的结果策略
type ParallelPolicy int

const (
	// SucceedOnOne 任一成功即成功，否则失败
	SucceedOnOne ParallelPolicy = iota
	// SucceedOnAll 全部成功才成功，否则返回第一个非成功结果
	SucceedOnAll
	// FailOnOne 任一失败即失败，否则成功
	FailOnOne
)

func (p ParallelPolicy) String() string {
	switch p {
	case SucceedOnOne:
		return "SUCCEED_ON_ONE"
	case SucceedOnAll:
		return "SUCCEED_ON_ALL"
	case FailOnOne:
		return "FAIL_ON_ONE"
	default:
		return "UNKNOWN"
	}
}

// Parallel 并行节点：每次执行全部子节点，再按策略合并结果
type Parallel struct {
	BaseNode
	policy ParallelPolicy
}

// NewParallel 创建并行节点
func NewParallel(name string, policy ParallelPolicy, children ...Node) *Parallel {
	return &Parallel{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeParallel, children: appendNonNil(nil, children...)},
		policy:   policy,
	}
}

// Policy 返回结果策略
func (p *Parallel) Policy() ParallelPolicy {
	return p.policy
}

func (p *Parallel) Execute(ctx *Context) Status {
	if len(p.children) == 0 {
		return p.Record(ctx, StatusFailure)
	}

	results := make([]Status, len(p.children))
	for i, child := range p.children {
		results[i] = child.Execute(ctx)
	}
	return p.Record(ctx, p.merge(results))
}

func (p *Parallel) merge(results []Status) Status {
	switch p.policy {
	case SucceedOnOne:
		for _, s := range results {
			if s == StatusSuccess {
				return StatusSuccess
			}
		}
		return StatusFailure

	case SucceedOnAll:
		for _, s := range results {
			if s != StatusSuccess {
				return s
			}
		}
		return StatusSuccess

	case FailOnOne:
		for _, s := range results {
			if s == StatusFailure {
				return StatusFailure
			}
		}
		return StatusSuccess
	}
	return StatusFailure
}

// Random 随机节点：每次执行随机选择一个子节点
//
// 被选中的子节点不会跨 tick 保留，RUNNING 的子节点在下一次 tick 可能被换掉。
type Random struct {
	BaseNode
}

// NewRandom 创建随机节点
func NewRandom(name string, children ...Node) *Random {
	return &Random{
		BaseNode: BaseNode{name: name, nodeType: NodeTypeRandom, children: appendNonNil(nil, children...)},
	}
}

func (r *Random) Execute(ctx *Context) Status {
	if len(r.children) == 0 {
		return r.Record(ctx, StatusFailure)
	}

	i := ctx.IntN(len(r.children))
	ctx.abandon(r.children, i)
	return r.Record(ctx, r.children[i].Execute(ctx))
}
