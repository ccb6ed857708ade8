package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector 进程资源采集器
type Collector struct {
	proc    *process.Process
	mu      sync.RWMutex
	stats   Stats
	stopCh  chan struct{}
	done    chan struct{}
	running bool
}

// Stats 进程统计数据
type Stats struct {
	// CPU 使用率 (0-100)
	CPUPercent float64 `json:"cpu_percent"`
	// 内存使用率 (0-100)
	MemoryPercent float64 `json:"memory_percent"`
	// 常驻内存字节数
	MemoryBytes uint64 `json:"memory_bytes"`
	// 主机整体 CPU 与内存使用率
	HostCPUPercent    float64   `json:"host_cpu_percent"`
	HostMemoryPercent float64   `json:"host_memory_percent"`
	Goroutines        int       `json:"goroutines"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// New 创建当前进程的采集器
func New() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Collector{proc: proc}, nil
}

// Start 立即采集一次并按 interval 定期采集
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	c.Collect()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop 停止采集
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	close(stopCh)
	<-done
}

// Collect 执行一次采集
func (c *Collector) Collect() Stats {
	var stats Stats

	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}

	if memInfo, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = memInfo.RSS
		if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(memInfo.RSS) / float64(vm.Total) * 100
		}
	}

	if p, err := GetSystemCPUPercent(); err == nil {
		stats.HostCPUPercent = p
	}
	if p, err := GetSystemMemoryPercent(); err == nil {
		stats.HostMemoryPercent = p
	}

	stats.Goroutines = runtime.NumGoroutine()
	stats.UpdatedAt = time.Now()

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats
}

// GetStats 获取最近一次采集结果
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// GetSystemCPUPercent 获取系统整体 CPU 使用率
func GetSystemCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) > 0 {
		return percentages[0], nil
	}
	return 0, nil
}

// GetSystemMemoryPercent 获取系统整体内存使用率
func GetSystemMemoryPercent() (float64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return v.UsedPercent, nil
}
