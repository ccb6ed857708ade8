package metrics

import (
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/sentry"
)

// PanicReporter 将 Agent panic 上报到 Sentry
type PanicReporter struct {
	client *sentry.Client
	tags   map[string]string
}

var _ bt.Observer = (*PanicReporter)(nil)

// NewPanicReporter 创建上报器，tags 附加到每个事件
func NewPanicReporter(c *sentry.Client, tags map[string]string) *PanicReporter {
	return &PanicReporter{client: c, tags: tags}
}

// OnTreeExecuted 实现 bt.Observer，不做处理
func (r *PanicReporter) OnTreeExecuted(string, bt.Status, time.Duration) {}

// OnAgentPanic 实现 bt.Observer
func (r *PanicReporter) OnAgentPanic(agent string, recovered any) {
	tags := make(map[string]string, len(r.tags)+1)
	for k, v := range r.tags {
		tags[k] = v
	}
	tags["agent"] = agent
	r.client.CapturePanic(recovered, tags)
}
