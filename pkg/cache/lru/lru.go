package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config LRU 配置
type Config struct {
	// MaxSize 最大容量，<= 0 表示不限
	MaxSize int `mapstructure:"max_size"`
	// DefaultTTL 默认过期时间，<= 0 表示永不过期
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// CleanupInterval 后台清理间隔，<= 0 时只在访问时惰性淘汰
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LRU 带 TTL 的内存 LRU 缓存，并发安全
type LRU[K comparable, V any] struct {
	cfg   Config
	clock clockwork.Clock
	order *list.List
	items map[K]*list.Element
	mu    sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	onEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // 零值表示永不过期
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Option LRU 配置选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置淘汰回调，在持有锁时调用，回调内不可再访问缓存
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// WithClock 设置时钟
func WithClock[K comparable, V any](clock clockwork.Clock) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.clock = clock
	}
}

// New 创建 LRU 缓存
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		clock:  clockwork.NewRealClock(),
		order:  list.New(),
		items:  make(map[K]*list.Element),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cfg != nil {
		c.cfg = *cfg
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.CleanupInterval > 0 {
		go c.cleanupLoop()
	} else {
		close(c.done)
	}
	return c
}

func (c *LRU[K, V]) cleanupLoop() {
	defer close(c.done)
	ticker := c.clock.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			c.RemoveExpired()
		case <-c.stopCh:
			return
		}
	}
}

// RemoveExpired 移除所有过期条目，返回移除数量
func (c *LRU[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if e.Value.(*entry[K, V]).expired(now) {
			c.removeElement(e)
			n++
		}
		e = prev
	}
	return n
}

// Get 获取值，过期条目视为不存在
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.lookup(key); ok {
		return ent.value, true
	}
	var zero V
	return zero, false
}

// Set 使用默认 TTL 写入
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.cfg.DefaultTTL)
}

// SetWithTTL 使用指定 TTL 写入
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = c.deadline(ttl)
		c.order.MoveToFront(elem)
		return
	}
	c.insert(key, value, ttl)
}

// GetOrCreate 命中则返回已有值，否则调用 create 并写入
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.lookup(key); ok {
		return ent.value
	}
	value := create()
	c.insert(key, value, c.cfg.DefaultTTL)
	return value
}

// Delete 删除
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len 当前条目数，包含尚未清理的过期条目
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear 清空缓存，不触发淘汰回调
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.done
	return nil
}

func (c *LRU[K, V]) lookup(key K) (*entry[K, V], bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry[K, V])
	if ent.expired(c.clock.Now()) {
		c.removeElement(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent, true
}

func (c *LRU[K, V]) insert(key K, value V, ttl time.Duration) {
	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: c.deadline(ttl),
	})
	for c.cfg.MaxSize > 0 && c.order.Len() > c.cfg.MaxSize {
		c.removeElement(c.order.Back())
	}
}

func (c *LRU[K, V]) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(ttl)
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
