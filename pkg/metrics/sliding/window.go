package sliding

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// 窗口大小
	WindowSize time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	// 桶数量
	BucketCount int `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count"`
}

// DefaultWindowConfig 默认配置
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Enabled:     true,
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

// bucket 时间桶
type bucket struct {
	count       int64
	totalTime   float64 // 秒
	minLatency  float64
	maxLatency  float64
	successCnt  int64
	failureCnt  int64
	timestamp   time.Time
	initialized bool
}

// Option 窗口选项
type Option func(*Window)

// WithClock 注入时钟，测试时使用 clockwork.FakeClock
func WithClock(c clockwork.Clock) Option {
	return func(w *Window) { w.clock = c }
}

// Window 滑动窗口统计器，记录最近一段时间内的执行次数与耗时
type Window struct {
	config *WindowConfig
	clock  clockwork.Clock
	mu     sync.RWMutex

	buckets       []bucket
	currentBucket int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewWindow 创建滑动窗口统计器并启动桶轮转
func NewWindow(cfg *WindowConfig, opts ...Option) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge window config: %w", err)
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize <= 0 {
		return nil, fmt.Errorf("invalid window config: size=%s buckets=%d", newCfg.WindowSize, newCfg.BucketCount)
	}

	w := &Window{
		config:  newCfg,
		clock:   clockwork.NewRealClock(),
		buckets: make([]bucket, newCfg.BucketCount),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	now := w.clock.Now()
	for i := range w.buckets {
		w.buckets[i].timestamp = now
		w.buckets[i].minLatency = -1
	}

	interval := newCfg.WindowSize / time.Duration(newCfg.BucketCount)
	ticker := w.clock.NewTicker(interval)
	go w.rotation(ticker)

	return w, nil
}

func (w *Window) rotation(ticker clockwork.Ticker) {
	defer close(w.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.rotate()
		case <-w.stopCh:
			return
		}
	}
}

// rotate 轮转到下一个桶
func (w *Window) rotate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentBucket = (w.currentBucket + 1) % len(w.buckets)
	w.buckets[w.currentBucket] = bucket{
		timestamp:  w.clock.Now(),
		minLatency: -1,
	}
}

// Record 记录一次执行
func (w *Window) Record(latency time.Duration, success bool) {
	if !w.config.Enabled {
		return
	}
	sec := latency.Seconds()

	w.mu.Lock()
	defer w.mu.Unlock()

	b := &w.buckets[w.currentBucket]
	b.count++
	b.totalTime += sec
	b.initialized = true

	if success {
		b.successCnt++
	} else {
		b.failureCnt++
	}

	if b.minLatency < 0 || sec < b.minLatency {
		b.minLatency = sec
	}
	if sec > b.maxLatency {
		b.maxLatency = sec
	}
}

// Stats 统计结果
type Stats struct {
	// 每秒执行次数
	QPS float64 `json:"qps"`
	// 延迟（秒）
	AvgLatency float64 `json:"avg_latency"`
	MinLatency float64 `json:"min_latency"`
	MaxLatency float64 `json:"max_latency"`
	// 成功率 (0-100)
	SuccessRate  float64 `json:"success_rate"`
	TotalCount   int64   `json:"total_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
}

// GetStats 获取窗口内的统计数据
func (w *Window) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var (
		stats      Stats
		totalTime  float64
		minLatency = float64(-1)
	)

	windowStart := w.clock.Now().Add(-w.config.WindowSize)
	for _, b := range w.buckets {
		if !b.initialized || !b.timestamp.After(windowStart) {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		stats.FailureCount += b.failureCnt
		totalTime += b.totalTime

		if b.minLatency >= 0 && (minLatency < 0 || b.minLatency < minLatency) {
			minLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
	}

	stats.QPS = float64(stats.TotalCount) / w.config.WindowSize.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	if minLatency >= 0 {
		stats.MinLatency = minLatency
	}

	return stats
}

// Stop 停止桶轮转，可重复调用
func (w *Window) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.done
	})
}
