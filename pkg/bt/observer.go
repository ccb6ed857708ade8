package bt

import "time"

// Observer 执行观察者，用于统计指标
type Observer interface {
	// OnTreeExecuted 一次树执行完成
	OnTreeExecuted(tree string, status Status, elapsed time.Duration)

	// OnAgentPanic Agent 更新时发生 panic
	OnAgentPanic(agent string, recovered any)
}

type nopObserver struct{}

func (nopObserver) OnTreeExecuted(string, Status, time.Duration) {}

func (nopObserver) OnAgentPanic(string, any) {}

type multiObserver []Observer

func (m multiObserver) OnTreeExecuted(tree string, status Status, elapsed time.Duration) {
	for _, o := range m {
		o.OnTreeExecuted(tree, status, elapsed)
	}
}

func (m multiObserver) OnAgentPanic(agent string, recovered any) {
	for _, o := range m {
		o.OnAgentPanic(agent, recovered)
	}
}

// MultiObserver 按顺序通知多个观察者，忽略 nil
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
