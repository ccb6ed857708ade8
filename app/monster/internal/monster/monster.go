package monster

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
)

// Monster 怪物实体
//
// 行为树回调在 worker 中修改怪物，HTTP 接口并发读取，所有字段由 mu 保护。
// Environment 只在帧开始前由世界刷新。
type Monster struct {
	id       uint32
	name     string
	typ      Type
	spawnPos Position

	mu          sync.RWMutex
	state       State
	pos         Position
	stats       Stats
	targetID    uint32
	patrol      []Position
	patrolIndex int
	diedAt      time.Time
	incarnation int64

	env *bt.EnvironmentInfo
}

// New 按刷怪配置创建怪物，未配置巡逻点时使用出生点周围的默认巡逻点
func New(id uint32, name string, cfg SpawnConfig) (*Monster, error) {
	stats, err := DefaultStats(cfg.Type)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, errors.New("monster id must be non-zero")
	}

	patrol := append([]Position(nil), cfg.PatrolPoints...)
	if len(patrol) == 0 {
		radius := cfg.PatrolRadius
		if radius <= 0 {
			radius = DefaultPatrolRadius
		}
		patrol = DefaultPatrolPoints(cfg.Position, radius)
	}

	return &Monster{
		id:       id,
		name:     name,
		typ:      cfg.Type,
		spawnPos: cfg.Position,
		state:    StateIdle,
		pos:      cfg.Position,
		stats:    stats,
		patrol:   patrol,
		env:      bt.NewEnvironmentInfo(),
	}, nil
}

func (m *Monster) ID() uint32 {
	return m.id
}

func (m *Monster) Name() string {
	return m.name
}

func (m *Monster) Type() Type {
	return m.typ
}

// SpawnPosition 出生点
func (m *Monster) SpawnPosition() Position {
	return m.spawnPos
}

// Environment 环境感知信息，只由世界在帧开始前刷新
func (m *Monster) Environment() *bt.EnvironmentInfo {
	return m.env
}

func (m *Monster) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetState 设置状态，死亡后只能通过 Respawn 离开 DEAD
func (m *Monster) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDead {
		return
	}
	m.state = s
}

func (m *Monster) Position() Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pos
}

// MoveTo 移动到指定位置，死亡时忽略
func (m *Monster) MoveTo(p Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDead {
		return
	}
	m.pos = p
}

// Stats 返回属性副本
func (m *Monster) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Monster) IsAlive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != StateDead
}

// TakeDamage 扣除生命，返回本次是否致死
func (m *Monster) TakeDamage(damage int, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDead || damage <= 0 {
		return false
	}
	if damage >= m.stats.Health {
		m.stats.Health = 0
		m.state = StateDead
		m.targetID = 0
		m.diedAt = now
		return true
	}
	m.stats.Health -= damage
	return false
}

// Heal 恢复生命，不超过上限，返回实际恢复量
func (m *Monster) Heal(amount int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDead || amount <= 0 {
		return 0
	}
	old := m.stats.Health
	m.stats.Health = min(m.stats.Health+amount, m.stats.MaxHealth)
	return m.stats.Health - old
}

// Target 当前目标 ID，0 表示无
func (m *Monster) Target() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targetID
}

func (m *Monster) SetTarget(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDead {
		return
	}
	m.targetID = id
}

func (m *Monster) ClearTarget() {
	m.SetTarget(0)
}

// HasPatrolPoints 是否有巡逻点
func (m *Monster) HasPatrolPoints() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patrol) > 0
}

// PatrolPoint 当前巡逻目标点
func (m *Monster) PatrolPoint() (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.patrol) == 0 {
		return m.spawnPos, false
	}
	return m.patrol[m.patrolIndex], true
}

// AdvancePatrol 切换到下一个巡逻点（循环）
func (m *Monster) AdvancePatrol() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.patrol) > 0 {
		m.patrolIndex = (m.patrolIndex + 1) % len(m.patrol)
	}
}

// DiedAt 死亡时间，存活时为零值
func (m *Monster) DiedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.diedAt
}

// RespawnDue 死亡时间超过 after 时返回 true
func (m *Monster) RespawnDue(now time.Time, after time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateDead && now.Sub(m.diedAt) >= after
}

// Respawn 在出生点以满属性复活，环境信息留给下一次世界刷新
func (m *Monster) Respawn(incarnation int64) {
	stats, _ := DefaultStats(m.typ)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	m.state = StateIdle
	m.pos = m.spawnPos
	m.targetID = 0
	m.patrolIndex = 0
	m.diedAt = time.Time{}
	m.incarnation = incarnation
}

// Incarnation 当前这一条命的生成 ID
func (m *Monster) Incarnation() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.incarnation
}

// SetIncarnation 记录首次生成的 ID
func (m *Monster) SetIncarnation(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incarnation = id
}

// Snapshot 对外展示用的只读视图
type Snapshot struct {
	ID          uint32   `json:"id"`
	Name        string   `json:"name"`
	Type        Type     `json:"type"`
	State       string   `json:"state"`
	Position    Position `json:"position"`
	Stats       Stats    `json:"stats"`
	TargetID    uint32   `json:"target_id"`
	Incarnation int64    `json:"incarnation"`
}

func (m *Monster) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		ID:          m.id,
		Name:        m.name,
		Type:        m.typ,
		State:       m.state.String(),
		Position:    m.pos,
		Stats:       m.stats,
		TargetID:    m.targetID,
		Incarnation: m.incarnation,
	}
}
