package idgen

import "sync/atomic"

type sequenceGenerator struct {
	next atomic.Int64
}

// NewSequence 创建从 start 开始递增的进程内 ID 生成器
func NewSequence(start int64) Generator {
	g := &sequenceGenerator{}
	g.next.Store(start)
	return g
}

func (g *sequenceGenerator) NextID() (int64, error) {
	return g.next.Add(1) - 1, nil
}
