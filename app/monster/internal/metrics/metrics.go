package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-ai/pkg/metrics/system"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	Subsystem string `mapstructure:"subsystem" json:"subsystem" yaml:"subsystem"`
	// SystemCollectInterval 进程资源采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval" yaml:"system_collect_interval"`
	// SlidingWindow 最近一段时间的树执行统计
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:             "xdooria",
		Subsystem:             "monster",
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// tickBuckets 树执行耗时分桶（秒），单次执行通常在微秒级
var tickBuckets = []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2}

// Metrics 怪物 AI 指标，实现 bt.Observer
type Metrics struct {
	config *Config
	logger logger.Logger
	client *prometheus.Client

	treeExecutions *prom.CounterVec
	treeDuration   *prom.HistogramVec
	agentPanics    *prom.CounterVec
	population     *prom.GaugeVec

	window *sliding.Window
	system *system.Collector
}

var _ bt.Observer = (*Metrics)(nil)

// New 创建指标
func New(cfg *Config, l logger.Logger) (*Metrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}
	if l == nil {
		l = logger.NewNoop()
	}

	client, err := prometheus.New(&prometheus.Config{
		Namespace: newCfg.Namespace,
		Subsystem: newCfg.Subsystem,
	})
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		config: newCfg,
		logger: l.Named("metrics"),
		client: client,
	}

	if m.treeExecutions, err = client.NewCounter("tree_executions_total", "行为树执行次数", []string{"tree", "status"}); err != nil {
		return nil, err
	}
	if m.treeDuration, err = client.NewHistogram("tree_execution_seconds", "行为树单次执行耗时", []string{"tree"}, tickBuckets); err != nil {
		return nil, err
	}
	if m.agentPanics, err = client.NewCounter("agent_panics_total", "Agent 更新时恢复的 panic 次数", []string{"agent"}); err != nil {
		return nil, err
	}
	if m.population, err = client.NewGauge("monsters", "按类型与状态统计的怪物数量", []string{"type", "state"}); err != nil {
		return nil, err
	}

	if m.window, err = sliding.NewWindow(&newCfg.SlidingWindow); err != nil {
		return nil, err
	}

	if m.system, err = system.New(); err != nil {
		m.logger.Warn("system collector unavailable", "error", err)
		m.system = nil
	} else {
		m.system.Start(newCfg.SystemCollectInterval)
	}

	return m, nil
}

// BindEngine 注册按需读取引擎状态的指标
func (m *Metrics) BindEngine(e *bt.Engine) error {
	if err := m.client.NewGaugeFunc("trees", "已注册的行为树数量", func() float64 {
		return float64(e.TreeCount())
	}); err != nil {
		return err
	}
	if err := m.client.NewGaugeFunc("agents", "已注册的 Agent 数量", func() float64 {
		return float64(e.AgentCount())
	}); err != nil {
		return err
	}
	return m.client.NewGaugeFunc("frames", "引擎已执行的帧数", func() float64 {
		return float64(e.Frames())
	})
}

// OnTreeExecuted 实现 bt.Observer
func (m *Metrics) OnTreeExecuted(tree string, status bt.Status, elapsed time.Duration) {
	m.treeExecutions.WithLabelValues(tree, status.String()).Inc()
	m.treeDuration.WithLabelValues(tree).Observe(elapsed.Seconds())
	m.window.Record(elapsed, status != bt.StatusFailure)
}

// OnAgentPanic 实现 bt.Observer
func (m *Metrics) OnAgentPanic(agent string, recovered any) {
	m.agentPanics.WithLabelValues(agent).Inc()
	m.logger.Warn("agent panic observed", "agent", agent, "panic", fmt.Sprint(recovered))
}

// ObservePopulation 用 type -> state -> count 覆盖怪物数量指标
func (m *Metrics) ObservePopulation(pop map[string]map[string]int) {
	m.population.Reset()
	for typ, states := range pop {
		for state, n := range states {
			m.population.WithLabelValues(typ, state).Set(float64(n))
		}
	}
}

// TickStats 最近窗口内的树执行统计
func (m *Metrics) TickStats() sliding.Stats {
	return m.window.GetStats()
}

// SystemStats 最近一次进程资源采集结果
func (m *Metrics) SystemStats() system.Stats {
	if m.system == nil {
		return system.Stats{}
	}
	return m.system.GetStats()
}

// Client 底层 Prometheus 客户端，供其他组件注册指标
func (m *Metrics) Client() *prometheus.Client {
	return m.client
}

// Handler 指标 HTTP Handler
func (m *Metrics) Handler() http.Handler {
	return m.client.Handler()
}

// Close 停止后台采集
func (m *Metrics) Close() error {
	m.window.Stop()
	if m.system != nil {
		m.system.Stop()
	}
	return m.client.Close()
}
