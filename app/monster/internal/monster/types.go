package monster

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnknownType 未知的怪物类型
var ErrUnknownType = errors.New("unknown monster type")

// Type 怪物类型
type Type string

const (
	TypeGoblin   Type = "goblin"
	TypeOrc      Type = "orc"
	TypeDragon   Type = "dragon"
	TypeSkeleton Type = "skeleton"
	TypeZombie   Type = "zombie"
	TypeMerchant Type = "merchant"
	TypeGuard    Type = "guard"
)

// Types 所有已知类型
var Types = []Type{TypeGoblin, TypeOrc, TypeDragon, TypeSkeleton, TypeZombie, TypeMerchant, TypeGuard}

// Valid 是否为已知类型
func (t Type) Valid() bool {
	_, ok := defaultStats[t]
	return ok
}

// TreeName 该类型共享的行为树名称
func (t Type) TreeName() string {
	return string(t) + "_bt"
}

// State 怪物状态
type State int

const (
	StateIdle State = iota
	StatePatrol
	StateChase
	StateAttack
	StateFlee
	StateDead
)

var stateNames = [...]string{"IDLE", "PATROL", "CHASE", "ATTACK", "FLEE", "DEAD"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Stats 战斗属性
type Stats struct {
	Level          int     `json:"level"`
	Health         int     `json:"health"`
	MaxHealth      int     `json:"max_health"`
	Mana           int     `json:"mana"`
	MaxMana        int     `json:"max_mana"`
	AttackPower    int     `json:"attack_power"`
	Defense        int     `json:"defense"`
	MoveSpeed      float64 `json:"move_speed"`      // 每秒移动距离
	AttackRange    float64 `json:"attack_range"`
	DetectionRange float64 `json:"detection_range"`
}

// HealthRatio 当前生命比例 [0,1]
func (s Stats) HealthRatio() float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	return float64(s.Health) / float64(s.MaxHealth)
}

var defaultStats = map[Type]Stats{
	TypeGoblin:   {Level: 1, Health: 50, MaxHealth: 50, Mana: 20, MaxMana: 20, AttackPower: 15, Defense: 5, MoveSpeed: 2.0, AttackRange: 1.5, DetectionRange: 50},
	TypeOrc:      {Level: 3, Health: 100, MaxHealth: 100, Mana: 30, MaxMana: 30, AttackPower: 25, Defense: 10, MoveSpeed: 1.5, AttackRange: 2.0, DetectionRange: 60},
	TypeDragon:   {Level: 10, Health: 500, MaxHealth: 500, Mana: 200, MaxMana: 200, AttackPower: 80, Defense: 30, MoveSpeed: 3.0, AttackRange: 5.0, DetectionRange: 100},
	TypeSkeleton: {Level: 2, Health: 80, MaxHealth: 80, AttackPower: 20, Defense: 8, MoveSpeed: 1.8, AttackRange: 1.8, DetectionRange: 40},
	TypeZombie:   {Level: 1, Health: 100, MaxHealth: 100, Mana: 10, MaxMana: 10, AttackPower: 10, Defense: 4, MoveSpeed: 0.5, AttackRange: 1.2, DetectionRange: 6},
	TypeMerchant: {Level: 1, Health: 50, MaxHealth: 50, Mana: 100, MaxMana: 100, AttackPower: 5, Defense: 2, MoveSpeed: 1.0, AttackRange: 0, DetectionRange: 5},
	TypeGuard:    {Level: 5, Health: 200, MaxHealth: 200, Mana: 80, MaxMana: 80, AttackPower: 25, Defense: 15, MoveSpeed: 1.5, AttackRange: 3.0, DetectionRange: 15},
}

// DefaultStats 返回类型的默认属性
func DefaultStats(t Type) (Stats, error) {
	s, ok := defaultStats[t]
	if !ok {
		return Stats{}, errors.Wrapf(ErrUnknownType, "type %q", string(t))
	}
	return s, nil
}

// Position 世界坐标
type Position struct {
	X float64 `mapstructure:"x" json:"x"`
	Y float64 `mapstructure:"y" json:"y"`
	Z float64 `mapstructure:"z" json:"z"`
}

// Distance 三维距离
func (p Position) Distance(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Toward 沿 XZ 平面向 target 移动 step，不会越过 target
func (p Position) Toward(target Position, step float64) Position {
	dx, dz := target.X-p.X, target.Z-p.Z
	dist := math.Hypot(dx, dz)
	if dist <= step || dist == 0 {
		return Position{X: target.X, Y: p.Y, Z: target.Z}
	}
	return Position{X: p.X + dx/dist*step, Y: p.Y, Z: p.Z + dz/dist*step}
}

// Away 沿 XZ 平面远离 from 移动 step
func (p Position) Away(from Position, step float64) Position {
	dx, dz := p.X-from.X, p.Z-from.Z
	dist := math.Hypot(dx, dz)
	if dist == 0 {
		return Position{X: p.X + step, Y: p.Y, Z: p.Z}
	}
	return Position{X: p.X + dx/dist*step, Y: p.Y, Z: p.Z + dz/dist*step}
}

// SpawnConfig 刷怪配置
type SpawnConfig struct {
	Type         Type          `mapstructure:"type" validate:"required"`
	Name         string        `mapstructure:"name" validate:"required"`
	Count        int           `mapstructure:"count" validate:"gte=0"`
	Position     Position      `mapstructure:"position"`
	PatrolPoints []Position    `mapstructure:"patrol_points"`
	PatrolRadius float64       `mapstructure:"patrol_radius" validate:"gte=0"`
	RespawnAfter time.Duration `mapstructure:"respawn_after"`
}

// DefaultPatrolRadius 未配置巡逻点时，围绕出生点生成的巡逻半径
const DefaultPatrolRadius = 15.0

// DefaultRespawnAfter 默认复活等待时间
const DefaultRespawnAfter = 30 * time.Second

// DefaultPatrolPoints 以出生点为中心的四方向巡逻点，首个点为出生点
func DefaultPatrolPoints(spawn Position, radius float64) []Position {
	return []Position{
		spawn,
		{X: spawn.X + radius, Y: spawn.Y, Z: spawn.Z},
		{X: spawn.X, Y: spawn.Y, Z: spawn.Z + radius},
		{X: spawn.X - radius, Y: spawn.Y, Z: spawn.Z},
		{X: spawn.X, Y: spawn.Y, Z: spawn.Z - radius},
	}
}
