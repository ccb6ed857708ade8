package bt

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// countingLeaf 记录被调用次数并返回固定结果
type countingLeaf struct {
	*Action
	calls int
}

func newCountingLeaf(name string, status Status) *countingLeaf {
	l := &countingLeaf{}
	l.Action = NewAction(name, func(*Context) Status {
		l.calls++
		return status
	})
	return l
}

// stickyLeaf 需要 n 次 tick 才成功，成功后不自行清零
func stickyLeaf(name string, n int) *Action {
	return NewAction(name, func(ctx *Context) Status {
		mem := ctx.Local()
		if mem.Counter >= n {
			return StatusSuccess
		}
		mem.Counter++
		if mem.Counter >= n {
			return StatusSuccess
		}
		return StatusRunning
	})
}

func newFakeContext() (*Context, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewContext(WithClock(clock), WithSeed(1)), clock
}

func tickN(n Node, ctx *Context, times int) []Status {
	out := make([]Status, 0, times)
	for i := 0; i < times; i++ {
		out = append(out, n.Execute(ctx))
	}
	return out
}
