package bt

import (
	"sync"
	"time"
)

// Blackboard 黑板，用于节点间共享数据
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewBlackboard 创建黑板
func NewBlackboard() *Blackboard {
	return &Blackboard{
		data: make(map[string]any),
	}
}

// Set 设置数据
func (bb *Blackboard) Set(key string, value any) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	bb.data[key] = value
}

// Get 获取数据
func (bb *Blackboard) Get(key string) (any, bool) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	val, ok := bb.data[key]
	return val, ok
}

// GetString 获取字符串
func (bb *Blackboard) GetString(key string) (string, bool) {
	return Value[string](bb, key)
}

// GetInt 获取整数
func (bb *Blackboard) GetInt(key string) (int, bool) {
	return Value[int](bb, key)
}

// GetInt64 获取 int64
func (bb *Blackboard) GetInt64(key string) (int64, bool) {
	return Value[int64](bb, key)
}

// GetFloat64 获取 float64
func (bb *Blackboard) GetFloat64(key string) (float64, bool) {
	return Value[float64](bb, key)
}

// GetBool 获取布尔值
func (bb *Blackboard) GetBool(key string) (bool, bool) {
	return Value[bool](bb, key)
}

// GetDuration 获取时长
func (bb *Blackboard) GetDuration(key string) (time.Duration, bool) {
	return Value[time.Duration](bb, key)
}

// Value 按类型读取数据，键不存在或类型不匹配时返回零值和 false
func Value[T any](bb *Blackboard, key string) (T, bool) {
	var zero T
	val, ok := bb.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := val.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// ValueOr 按类型读取数据，失败时返回 def
func ValueOr[T any](bb *Blackboard, key string, def T) T {
	if v, ok := Value[T](bb, key); ok {
		return v
	}
	return def
}

// Has 检查是否存在
func (bb *Blackboard) Has(key string) bool {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	_, ok := bb.data[key]
	return ok
}

// Delete 删除数据
func (bb *Blackboard) Delete(key string) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	delete(bb.data, key)
}

// Keys 返回所有键
func (bb *Blackboard) Keys() []string {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	keys := make([]string, 0, len(bb.data))
	for k := range bb.data {
		keys = append(keys, k)
	}
	return keys
}

// Len 返回条目数量
func (bb *Blackboard) Len() int {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	return len(bb.data)
}

// Snapshot 返回数据副本
func (bb *Blackboard) Snapshot() map[string]any {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	out := make(map[string]any, len(bb.data))
	for k, v := range bb.data {
		out[k] = v
	}
	return out
}

// Clear 清空黑板
func (bb *Blackboard) Clear() {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	bb.data = make(map[string]any)
}
