package world

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
)

// ErrPlayerNotFound 玩家不存在
var ErrPlayerNotFound = errors.New("player not found")

// PlayerConfig 初始玩家配置
type PlayerConfig struct {
	ID       uint32           `mapstructure:"id" validate:"required"`
	Name     string           `mapstructure:"name"`
	Health   int              `mapstructure:"health" validate:"gte=0"`
	Position monster.Position `mapstructure:"position"`
}

// ObstacleConfig 球形障碍物，阻挡视线
type ObstacleConfig struct {
	ID       uint32           `mapstructure:"id" validate:"required"`
	Position monster.Position `mapstructure:"position"`
	Radius   float64          `mapstructure:"radius" validate:"gt=0"`
}

// Config 世界配置
type Config struct {
	// DetectionRange 怪物未配置侦测范围时使用
	DetectionRange float64          `mapstructure:"detection_range" validate:"gte=0"`
	Players        []PlayerConfig   `mapstructure:"players" validate:"dive"`
	Obstacles      []ObstacleConfig `mapstructure:"obstacles" validate:"dive"`
}

// DefaultPlayerHealth 未配置生命值的玩家默认生命
const DefaultPlayerHealth = 1000

// Player 玩家
type Player struct {
	ID        uint32           `json:"id"`
	Name      string           `json:"name"`
	Position  monster.Position `json:"position"`
	Health    int              `json:"health"`
	MaxHealth int              `json:"max_health"`
}

// Alive 生命大于 0
func (p Player) Alive() bool {
	return p.Health > 0
}

// World 玩家与障碍物的状态，负责在每帧之前为怪物生成环境感知
type World struct {
	mu             sync.RWMutex
	detectionRange float64
	players        map[uint32]*Player
	obstacles      []ObstacleConfig
}

// New 创建世界
func New(cfg Config) *World {
	w := &World{
		detectionRange: cfg.DetectionRange,
		players:        make(map[uint32]*Player, len(cfg.Players)),
		obstacles:      slices.Clone(cfg.Obstacles),
	}
	for _, pc := range cfg.Players {
		w.AddPlayer(pc)
	}
	return w
}

// AddPlayer 添加或替换玩家
func (w *World) AddPlayer(pc PlayerConfig) {
	hp := pc.Health
	if hp <= 0 {
		hp = DefaultPlayerHealth
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.players[pc.ID] = &Player{ID: pc.ID, Name: pc.Name, Position: pc.Position, Health: hp, MaxHealth: hp}
}

// RemovePlayer 移除玩家
func (w *World) RemovePlayer(id uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// MovePlayer 移动玩家
func (w *World) MovePlayer(id uint32, pos monster.Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return errors.Wrapf(ErrPlayerNotFound, "id %d", id)
	}
	p.Position = pos
	return nil
}

// Player 获取玩家副本
func (w *World) Player(id uint32) (Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players 按 ID 排序的玩家副本
func (w *World) Players() []Player {
	w.mu.RLock()
	out := make([]Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, *p)
	}
	w.mu.RUnlock()

	slices.SortFunc(out, func(a, b Player) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// DamagePlayer 扣除玩家生命，返回剩余生命
func (w *World) DamagePlayer(id uint32, damage int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return 0, errors.Wrapf(ErrPlayerNotFound, "id %d", id)
	}
	p.Health = max(p.Health-damage, 0)
	return p.Health, nil
}

// RevivePlayers 恢复所有倒下的玩家，返回复活数量
func (w *World) RevivePlayers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, p := range w.players {
		if !p.Alive() {
			p.Health = p.MaxHealth
			n++
		}
	}
	return n
}

// Refresh 为每个存活怪物重建环境感知
//
// 必须在引擎更新 Agent 之前调用，更新期间行为树只读环境信息。
func (w *World) Refresh(monsters []*monster.Monster) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	type seen struct {
		id  uint32
		pos monster.Position
	}
	alive := make([]seen, 0, len(monsters))
	for _, m := range monsters {
		if m.IsAlive() {
			alive = append(alive, seen{id: m.ID(), pos: m.Position()})
		}
	}

	for _, m := range monsters {
		env := m.Environment()
		env.Clear()
		if !m.IsAlive() {
			continue
		}

		pos := m.Position()
		r := m.Stats().DetectionRange
		if r <= 0 {
			r = w.detectionRange
		}

		var nearest *Player
		nearestDist := math.Inf(1)
		for _, p := range w.players {
			if !p.Alive() {
				continue
			}
			d := pos.Distance(p.Position)
			if d > r {
				continue
			}
			env.NearbyPlayers = append(env.NearbyPlayers, p.ID)
			if d < nearestDist || (d == nearestDist && p.ID < nearest.ID) {
				nearest, nearestDist = p, d
			}
		}
		slices.Sort(env.NearbyPlayers)

		for _, o := range alive {
			if o.id != m.ID() && pos.Distance(o.pos) <= r {
				env.NearbyMonsters = append(env.NearbyMonsters, o.id)
			}
		}

		for _, ob := range w.obstacles {
			if pos.Distance(ob.Position)-ob.Radius <= r {
				env.Obstacles = append(env.Obstacles, ob.ID)
			}
		}

		if nearest != nil {
			env.NearestEnemyID = nearest.ID
			env.NearestEnemyDistance = nearestDist
			env.HasLineOfSight = w.lineOfSight(pos, nearest.Position)
		}
	}
}

// lineOfSight 线段 a-b 不穿过任何障碍物时返回 true
func (w *World) lineOfSight(a, b monster.Position) bool {
	for _, ob := range w.obstacles {
		if segmentDistance(a, b, ob.Position) < ob.Radius {
			return false
		}
	}
	return true
}

func segmentDistance(a, b, p monster.Position) float64 {
	abx, aby, abz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	lenSq := abx*abx + aby*aby + abz*abz
	if lenSq == 0 {
		return a.Distance(p)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby + (p.Z-a.Z)*abz) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := monster.Position{X: a.X + t*abx, Y: a.Y + t*aby, Z: a.Z + t*abz}
	return closest.Distance(p)
}
