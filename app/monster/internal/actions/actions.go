package actions

import (
	"time"

	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

const (
	// KeyMonster 黑板中绑定怪物实体的键
	KeyMonster = "monster"

	// ArrivalThreshold 到达巡逻点的判定距离
	ArrivalThreshold = 1.0

	// ChaseFactor 追击距离超过侦测范围的倍数后放弃目标
	ChaseFactor = 1.5

	// defaultStepSeconds 未提供帧间隔时按此时长计算移动步长
	defaultStepSeconds = 0.5
)

// NewBlackboard 创建绑定了怪物的黑板
func NewBlackboard(m *monster.Monster) *bt.Blackboard {
	bb := bt.NewBlackboard()
	bb.Set(KeyMonster, m)
	return bb
}

// MonsterOf 取出 Context 绑定的怪物
func MonsterOf(ctx *bt.Context) (*monster.Monster, bool) {
	m, ok := bt.Value[*monster.Monster](ctx.Blackboard, KeyMonster)
	return m, ok && m != nil
}

// Set 怪物行为树的叶子回调集合
type Set struct {
	world  *world.World
	logger logger.Logger
}

// New 创建回调集合
func New(w *world.World, l logger.Logger) *Set {
	if l == nil {
		l = logger.NewNoop()
	}
	return &Set{world: w, logger: l.Named("actions")}
}

func step(ctx *bt.Context, speed float64) float64 {
	sec := ctx.DeltaTime().Seconds()
	if sec <= 0 {
		sec = defaultStepSeconds
	}
	return speed * sec
}

// HasTarget 怪物是否有目标
func (s *Set) HasTarget(ctx *bt.Context) bool {
	m, ok := MonsterOf(ctx)
	return ok && m.Target() != 0
}

// InAttackRange 目标是最近敌人、可见且在攻击范围内
func (s *Set) InAttackRange(ctx *bt.Context) bool {
	m, ok := MonsterOf(ctx)
	if !ok || m.Target() == 0 {
		return false
	}
	env := m.Environment()
	return env.NearestEnemyID == m.Target() &&
		env.HasLineOfSight &&
		env.IsEnemyInRange(m.Stats().AttackRange)
}

// InDetectionRange 最近敌人在侦测范围内
func (s *Set) InDetectionRange(ctx *bt.Context) bool {
	m, ok := MonsterOf(ctx)
	if !ok {
		return false
	}
	return m.Environment().IsEnemyInRange(m.Stats().DetectionRange)
}

// HealthAbove 生命比例高于 ratio
func (s *Set) HealthAbove(ratio float64) bt.ConditionFunc {
	return func(ctx *bt.Context) bool {
		m, ok := MonsterOf(ctx)
		return ok && m.Stats().HealthRatio() > ratio
	}
}

// AcquireTarget 锁定可见的最近敌人，没有敌人时清除目标
func (s *Set) AcquireTarget(ctx *bt.Context) bt.Status {
	m, ok := MonsterOf(ctx)
	if !ok {
		return bt.StatusFailure
	}

	env := m.Environment()
	if !env.HasEnemy() || !env.HasLineOfSight {
		if m.Target() != 0 {
			s.logger.Debug("target lost", "monster", m.Name(), "target", m.Target())
			m.ClearTarget()
		}
		return bt.StatusFailure
	}

	if m.Target() != env.NearestEnemyID {
		m.SetTarget(env.NearestEnemyID)
		s.logger.Debug("target acquired",
			"monster", m.Name(),
			"target", env.NearestEnemyID,
			"distance", env.NearestEnemyDistance,
		)
	}
	return bt.StatusSuccess
}

// Attack 以攻击力的 multiplier 倍伤害攻击目标
func (s *Set) Attack(multiplier float64) bt.ActionFunc {
	return func(ctx *bt.Context) bt.Status {
		m, ok := MonsterOf(ctx)
		if !ok || m.Target() == 0 {
			return bt.StatusFailure
		}

		target := m.Target()
		damage := max(int(float64(m.Stats().AttackPower)*multiplier), 1)
		hp, err := s.world.DamagePlayer(target, damage)
		if err != nil {
			m.ClearTarget()
			return bt.StatusFailure
		}

		m.SetState(monster.StateAttack)
		s.logger.Debug("attack",
			"monster", m.Name(),
			"target", target,
			"damage", damage,
			"remaining", hp,
		)
		if hp == 0 {
			s.logger.Info("player defeated", "monster", m.Name(), "player", target)
			m.ClearTarget()
		}
		return bt.StatusSuccess
	}
}

// Chase 向目标移动，进入攻击范围时成功，目标消失或逃出追击范围时失败
func (s *Set) Chase(ctx *bt.Context) bt.Status {
	m, ok := MonsterOf(ctx)
	if !ok || m.Target() == 0 {
		return bt.StatusFailure
	}

	p, found := s.world.Player(m.Target())
	if !found || !p.Alive() {
		m.ClearTarget()
		return bt.StatusFailure
	}

	stats := m.Stats()
	pos := m.Position()
	dist := pos.Distance(p.Position)
	if dist <= stats.AttackRange {
		return bt.StatusSuccess
	}
	if dist > stats.DetectionRange*ChaseFactor {
		s.logger.Debug("chase abandoned", "monster", m.Name(), "target", p.ID, "distance", dist)
		m.ClearTarget()
		return bt.StatusFailure
	}

	m.MoveTo(pos.Toward(p.Position, step(ctx, stats.MoveSpeed)))
	m.SetState(monster.StateChase)
	return bt.StatusRunning
}

// Patrol 沿巡逻点移动，到达一个点时成功并切换到下一个点
func (s *Set) Patrol(ctx *bt.Context) bt.Status {
	m, ok := MonsterOf(ctx)
	if !ok {
		return bt.StatusFailure
	}

	point, ok := m.PatrolPoint()
	if !ok {
		return bt.StatusFailure
	}

	pos := m.Position()
	if pos.Distance(point) <= ArrivalThreshold {
		m.MoveTo(point)
		m.AdvancePatrol()
		return bt.StatusSuccess
	}

	m.MoveTo(pos.Toward(point, step(ctx, m.Stats().MoveSpeed)))
	m.SetState(monster.StatePatrol)
	return bt.StatusRunning
}

// Flee 远离最近的敌人，脱离侦测范围后成功
func (s *Set) Flee(ctx *bt.Context) bt.Status {
	m, ok := MonsterOf(ctx)
	if !ok {
		return bt.StatusFailure
	}

	env := m.Environment()
	if !env.HasEnemy() {
		return bt.StatusSuccess
	}
	p, found := s.world.Player(env.NearestEnemyID)
	if !found {
		return bt.StatusSuccess
	}

	m.ClearTarget()
	stats := m.Stats()
	next := m.Position().Away(p.Position, step(ctx, stats.MoveSpeed))
	m.MoveTo(next)
	m.SetState(monster.StateFlee)

	if next.Distance(p.Position) > stats.DetectionRange {
		return bt.StatusSuccess
	}
	return bt.StatusRunning
}

// Wait 原地等待 d，期间返回 RUNNING
func (s *Set) Wait(d time.Duration) bt.ActionFunc {
	return func(ctx *bt.Context) bt.Status {
		mem := ctx.Local()
		if !mem.Started {
			mem.Started = true
			mem.StartedAt = ctx.Now()
		}
		if ctx.Now().Sub(mem.StartedAt) >= d {
			mem.Started = false
			return bt.StatusSuccess
		}
		if m, ok := MonsterOf(ctx); ok {
			m.SetState(monster.StateIdle)
		}
		return bt.StatusRunning
	}
}

// Idle 进入空闲状态
func (s *Set) Idle(ctx *bt.Context) bt.Status {
	m, ok := MonsterOf(ctx)
	if !ok {
		return bt.StatusFailure
	}
	m.SetState(monster.StateIdle)
	return bt.StatusSuccess
}

// Regenerate 恢复 amount 点生命，满血时失败
func (s *Set) Regenerate(amount int) bt.ActionFunc {
	return func(ctx *bt.Context) bt.Status {
		m, ok := MonsterOf(ctx)
		if !ok {
			return bt.StatusFailure
		}
		if m.Heal(amount) == 0 {
			return bt.StatusFailure
		}
		return bt.StatusSuccess
	}
}
